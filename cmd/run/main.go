package main

import "github.com/zintix-labs/clawlab/sdk/perf"

// makefile runner
func main() {
	bindVar()
	if err := perf.RunPProf(executeSimulator, cfg.pprofmode, perf.DefaultDir); err != nil {
		fatal(err)
	}
}
