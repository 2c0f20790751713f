package main

import (
	"encoding/json"
	"runtime"
	"testing"
)

func smallSim() simOptions {
	return simOptions{
		WindowPages:   4096,
		PageSize:      4096,
		Workers:       2,
		Ops:           2000,
		Seed:          7,
		LazyRatio:     0.7,
		SmallRatio:    0.5,
		CongruentRate: 0.05,
	}
}

func TestSimulate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*simOptions)
	}{
		{name: "sequential"},
		{name: "concurrent", modify: func(o *simOptions) { o.Concurrent = true; o.Workers = 4 }},
		{name: "coalesced flushes", modify: func(o *simOptions) { o.Coalesced = true }},
		{name: "tiny window", modify: func(o *simOptions) { o.WindowPages = 256 }},
		{name: "all lazy", modify: func(o *simOptions) { o.LazyRatio = 1 }},
		{name: "no blocks", modify: func(o *simOptions) { o.SmallRatio = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := smallSim()
			if tt.modify != nil {
				tt.modify(&opts)
			}

			res, err := simulate(opts)
			if err != nil {
				t.Fatalf("simulate: %v", err)
			}
			if !res.Consistent {
				t.Errorf("allocator inconsistent after run")
			}
			if res.FinalRegion == "" {
				t.Errorf("window not fully reclaimed: %+v", res.Stats)
			}
			if res.Stats.BusyRegions != 0 || res.Stats.LazyBytes != 0 {
				t.Errorf("leftover busy=%d lazy=%d", res.Stats.BusyRegions, res.Stats.LazyBytes)
			}
			if res.Stats.Allocs == 0 {
				t.Errorf("no allocations recorded")
			}
		})
	}
}

func TestSimulate_Mmap(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("reservation requires a unix host")
	}
	opts := smallSim()
	opts.Mmap = true
	opts.WindowPages = 1024

	res, err := simulate(opts)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !res.Consistent || res.FinalRegion == "" {
		t.Errorf("reservation run not reclaimed: %+v", res)
	}
}

func TestSimulate_InvalidOptions(t *testing.T) {
	opts := smallSim()
	opts.Workers = 0
	if _, err := simulate(opts); err == nil {
		t.Errorf("expected error for zero workers")
	}

	opts = smallSim()
	opts.WindowPages = 0
	if _, err := simulate(opts); err == nil {
		t.Errorf("expected error for empty window")
	}

	opts = smallSim()
	opts.PageSize = 3000
	if _, err := simulate(opts); err == nil {
		t.Errorf("expected error for non power of two page size")
	}
}

func TestRunSimulate_Output(t *testing.T) {
	setGlobals(t, false, false)
	out, err := captureOutput(t, func() error { return runSimulate(smallSim()) })
	if err != nil {
		t.Fatalf("runSimulate: %v", err)
	}
	assertContains(t, out, []string{"Window:", "Fit types:", "Fully reclaimed:"})
}

func TestRunSimulate_JSON(t *testing.T) {
	setGlobals(t, true, false)
	out, err := captureOutput(t, func() error { return runSimulate(smallSim()) })
	if err != nil {
		t.Fatalf("runSimulate: %v", err)
	}
	assertJSON(t, out)

	var res SimResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Workers != 2 || !res.Consistent {
		t.Errorf("unexpected result: %+v", res)
	}
}
