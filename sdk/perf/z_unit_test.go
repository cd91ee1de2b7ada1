package perf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunPProf(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range []string{"", "cpu", "heap", "allocs"} {
		ran := false
		if err := RunPProf(func() { ran = true }, mode, dir); err != nil || !ran {
			t.Fatalf("mode %q got err=%v ran=%v", mode, err, ran)
		}
		if mode == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, mode+".pprof")); err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
	}
	if err := RunPProf(func() {}, "trace", dir); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}
