package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfilerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "runtime.trace"),
	}
	if !opts.Enabled() {
		t.Fatalf("expected options to be enabled")
	}
	p, err := Start(opts)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, path := range []string{opts.CPU, opts.Mem, opts.Trace} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}

func TestStartFailsForBadPath(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{
		CPU:   filepath.Join(dir, "first.pprof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	// профилировщик CPU не должен остаться запущенным
	p, err := Start(Options{CPU: filepath.Join(dir, "cpu.pprof")})
	if err != nil {
		t.Fatalf("cpu profile still running: %v", err)
	}
	_ = p.Stop()
}

func TestNilProfiler(t *testing.T) {
	var p *Profiler
	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if (Options{}).Enabled() {
		t.Fatalf("zero options enabled")
	}
}
