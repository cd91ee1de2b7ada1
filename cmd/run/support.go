package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"math"
	"math/big"
	"os"
	"strconv"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/demo"
	"github.com/zintix-labs/clawlab/spec"
	"github.com/zintix-labs/clawlab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	id        spec.MID
	file      string
	worker    int
	player    int
	strategy  string
	seed      int64
	format    string
	pprofmode string
}

type midFlag struct{ p *spec.MID }

func (f midFlag) String() string {
	if f.p == nil {
		return "0"
	}
	return fmt.Sprint(uint(*f.p))
}

func (f midFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.MID(uint(u))
	return nil
}

func bindVar() {
	flag.Var(midFlag{&cfg.id}, "machine", "target machine id (demo: 1001, 1002, 1003)")
	flag.StringVar(&cfg.file, "config", "", "simulate an external machine yaml instead of a demo machine")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.player, "player", 1000, "number of simulated players")
	flag.StringVar(&cfg.strategy, "strategy", "", "bot strategy override: nearest|random|script")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed (< 1 means random)")
	flag.StringVar(&cfg.format, "format", "table", "output: table|json|yaml")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func executeSimulator() {
	cfg.valid()

	lab, err := demo.NewClawlab()
	if err != nil {
		fatal(err)
	}
	s, err := newSimulator(lab)
	if err != nil {
		fatal(err)
	}
	if cfg.strategy != "" {
		if err := s.SetStrategy(cfg.strategy); err != nil {
			fatal(err)
		}
	}

	table := cfg.format == "table"
	if table {
		green := "\033[1;32m"
		reset := "\033[0m"
		p := message.NewPrinter(language.English)
		p.Printf("%s[WORKERS:%d] [MACHINE:%s] [STRATEGY:%s] [PLAYERS:%d] [SEED:%d]%s\n",
			green, cfg.worker, s.MachineName, s.Strategy(), cfg.player, s.Seed(), reset)
	}
	st, est, used, err := s.SimPlayers(context.Background(), cfg.worker, cfg.player, table)
	if err != nil {
		fatal(err)
	}

	if table {
		st.StdOut(used)
		est.Out()
		return
	}
	if err := writeAll(st, est, cfg.format); err != nil {
		fatal(err)
	}
}

func newSimulator(lab *clawlab.Clawlab) (*clawlab.Simulator, error) {
	if cfg.file == "" {
		return lab.NewSimulatorWithSeed(cfg.id, cfg.seed)
	}
	raw, err := os.ReadFile(cfg.file)
	if err != nil {
		return nil, err
	}
	return lab.NewSimulatorByYAML(raw, cfg.seed)
}

func writeAll(st *stats.StatReport, est *stats.EstimatorPlayers, format string) error {
	sr, err := stats.RenderByName(format)
	if err != nil {
		return err
	}
	er, err := stats.EstimatorRenderByName(format)
	if err != nil {
		return err
	}
	if err := st.WriteWith(os.Stdout, sr); err != nil {
		return err
	}
	return er.Write(os.Stdout, est)
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	if cfg.worker < 1 {
		fatal(fmt.Errorf("value err : workers must > 0"))
	}
	if cfg.player < 1 {
		fatal(fmt.Errorf("value err : player must > 0"))
	}
	if cfg.player > 100000 {
		p.Printf("too many players: %d resized to 100k players\n", cfg.player)
		cfg.player = 100000
	}
	if cfg.file == "" && cfg.id == 0 {
		cfg.id = 1001
	}
	switch cfg.format {
	case "table", "json", "yaml":
	default:
		fatal(fmt.Errorf("value err : unknown format %q", cfg.format))
	}
}
