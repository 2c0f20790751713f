package main

import (
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/vmapkit/internal/logger"
	"github.com/joshuapare/vmapkit/vmap"
	"github.com/joshuapare/vmapkit/vmap/dirty"
	"github.com/joshuapare/vmapkit/vmap/mapper"
)

// simBase is where the simulated window starts when no real reservation is
// used. Any page-aligned value works.
const simBase = 0x4000_0000

var (
	simWindowPages   uint64
	simPageSize      uint64
	simWorkers       int
	simBlockUnits    int
	simMaxSmall      int
	simOps           int
	simSeed          int64
	simLazyRatio     float64
	simSmallRatio    float64
	simCongruentRate float64
	simConcurrent    bool
	simMmap          bool
	simCoalesced     bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().Uint64Var(&simWindowPages, "window", 1<<16, "Window size in pages")
	cmd.Flags().Uint64Var(&simPageSize, "page-size", 4096, "Page size in bytes (ignored with --mmap)")
	cmd.Flags().IntVar(&simWorkers, "workers", 4, "Number of workers")
	cmd.Flags().IntVar(&simBlockUnits, "block-units", 0, "Pages per small-allocation block (0 = default)")
	cmd.Flags().IntVar(&simMaxSmall, "max-small", 0, "Largest small allocation in pages (0 = default)")
	cmd.Flags().IntVar(&simOps, "ops", 100000, "Operations per worker")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().Float64Var(&simLazyRatio, "lazy-ratio", 0.8, "Fraction of region frees that go through the purge queue")
	cmd.Flags().Float64Var(&simSmallRatio, "small-ratio", 0.5, "Fraction of allocations served by blocks")
	cmd.Flags().Float64Var(&simCongruentRate, "congruent-ratio", 0.01, "Fraction of allocations that are congruent groups")
	cmd.Flags().BoolVar(&simConcurrent, "concurrent", false, "Run one goroutine per worker")
	cmd.Flags().BoolVar(&simMmap, "mmap", false, "Back the window with a real PROT_NONE reservation")
	cmd.Flags().BoolVar(&simCoalesced, "coalesced", false, "Flush coalesced ranges instead of one span per purge")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a randomized allocation workload",
		Long: `The simulate command runs a seeded random mix of region allocations,
block allocations, congruent groups, synchronous and lazy frees against a
fresh allocator. After the run every live allocation is released, the purge
queue is flushed and the allocator's invariants are verified.

Example:
  vmapctl simulate
  vmapctl simulate --workers 8 --ops 500000 --concurrent
  vmapctl simulate --mmap --window 4096 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := simOptions{
				WindowPages:   simWindowPages,
				PageSize:      simPageSize,
				Workers:       simWorkers,
				BlockUnits:    simBlockUnits,
				MaxSmallUnits: simMaxSmall,
				Ops:           simOps,
				Seed:          simSeed,
				LazyRatio:     simLazyRatio,
				SmallRatio:    simSmallRatio,
				CongruentRate: simCongruentRate,
				Concurrent:    simConcurrent,
				Mmap:          simMmap,
				Coalesced:     simCoalesced,
			}
			return runSimulate(opts)
		},
	}
	return cmd
}

type simOptions struct {
	WindowPages   uint64
	PageSize      uint64
	Workers       int
	BlockUnits    int
	MaxSmallUnits int
	Ops           int
	Seed          int64
	LazyRatio     float64
	SmallRatio    float64
	CongruentRate float64
	Concurrent    bool
	Mmap          bool
	Coalesced     bool
}

// SimResult summarizes one workload run.
type SimResult struct {
	Window      string        `json:"window"`
	PageSize    uint64        `json:"page_size"`
	Workers     int           `json:"workers"`
	Ops         int           `json:"ops"`
	Failures    int           `json:"failures"`
	PeakBusy    uint64        `json:"peak_busy_bytes"`
	FlushCalls  int           `json:"flush_calls"`
	Duration    time.Duration `json:"duration_ns"`
	Stats       vmap.Stats    `json:"stats"`
	Consistent  bool          `json:"consistent"`
	FinalRegion string        `json:"final_free_region"`
}

func runSimulate(opts simOptions) error {
	printVerbose("Building allocator: %d pages, %d workers\n", opts.WindowPages, opts.Workers)

	res, err := simulate(opts)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(res)
	}
	printSimResult(res)
	return nil
}

// simulate builds an allocator per opts, runs the workload and tears it down.
func simulate(opts simOptions) (*SimResult, error) {
	if opts.Workers < 1 {
		return nil, errors.Newf("workers must be at least 1, got %d", opts.Workers)
	}
	if opts.WindowPages == 0 {
		return nil, errors.New("window must be at least one page")
	}

	cfg := vmap.Config{
		Workers:       opts.Workers,
		BlockUnits:    opts.BlockUnits,
		MaxSmallUnits: opts.MaxSmallUnits,
		Logger:        logger.L,
	}
	if opts.Coalesced {
		cfg.FlushMode = dirty.FlushCoalesced
	}

	var counter interface{ FlushCount() int }
	if opts.Mmap {
		r, err := mapper.NewReservation(opts.WindowPages * uint64(os.Getpagesize()))
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := r.Close(); cerr != nil {
				logger.Warn("reservation close failed", "error", cerr)
			}
		}()
		cfg.Start, cfg.End = r.Base(), r.Base()+r.Size()
		cfg.PageSize = r.PageSize()
		cfg.Mapper, cfg.Flusher = r, r
		counter = r
	} else {
		rec := mapper.NewRecorder(opts.PageSize, false)
		cfg.Start = simBase
		cfg.End = simBase + opts.WindowPages*opts.PageSize
		cfg.PageSize = opts.PageSize
		cfg.Mapper, cfg.Flusher = rec, rec
		counter = rec
	}

	a, err := vmap.New(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	failures, peak, err := runWorkload(a, opts)
	if err != nil {
		return nil, err
	}
	if err := a.PurgeAll(vmap.Region{}); err != nil {
		return nil, errors.Wrap(err, "final purge")
	}
	elapsed := time.Since(start)

	res := &SimResult{
		Window:     a.Window().String(),
		PageSize:   a.PageSize(),
		Workers:    a.NumWorkers(),
		Ops:        opts.Ops * opts.Workers,
		Failures:   failures,
		PeakBusy:   peak,
		FlushCalls: counter.FlushCount(),
		Duration:   elapsed,
		Stats:      a.Stats(),
	}
	if err := a.CheckInvariants(); err != nil {
		logger.Error("invariant check failed", "error", err)
		return res, errors.Wrap(err, "allocator inconsistent after run")
	}
	res.Consistent = true
	if res.Stats.FreeRegions == 1 && res.Stats.FreeBytes == a.Window().Size() {
		res.FinalRegion = a.Window().String()
	}
	return res, nil
}

type simKind int

const (
	simRegion simKind = iota
	simSmall
	simCongruent
)

type simAlloc struct {
	kind   simKind
	addr   vmap.Address
	frames int
	areas  []vmap.CongruentArea
	size   uint64
}

// runWorkload drives every worker for opts.Ops steps, then frees whatever is
// still live. It returns the number of allocations that ran out of space and
// the peak busy byte count observed.
func runWorkload(a *vmap.Allocator, opts simOptions) (int, uint64, error) {
	var (
		mu       sync.Mutex
		failures int
		busy     uint64
		peak     uint64
	)
	account := func(delta int64, failed bool) {
		mu.Lock()
		defer mu.Unlock()
		if failed {
			failures++
			return
		}
		busy = uint64(int64(busy) + delta)
		peak = max(peak, busy)
	}

	run := func(w *vmap.Worker) error {
		rng := rand.New(rand.NewSource(opts.Seed + int64(w.ID())))
		var live []simAlloc

		for i := 0; i < opts.Ops; i++ {
			if len(live) == 0 || rng.Intn(5) < 3 {
				sa, err := allocOne(a, w, rng, opts)
				if errors.Is(err, vmap.ErrOutOfSpace) || errors.Is(err, vmap.ErrNotFound) {
					account(0, true)
					continue
				}
				if err != nil {
					return errors.Wrapf(err, "worker %d step %d", w.ID(), i)
				}
				account(int64(sa.size), false)
				live = append(live, sa)
				continue
			}

			j := rng.Intn(len(live))
			sa := live[j]
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			if err := freeOne(a, sa, rng.Float64() < opts.LazyRatio); err != nil {
				return errors.Wrapf(err, "worker %d step %d", w.ID(), i)
			}
			account(-int64(sa.size), false)
		}

		for _, sa := range live {
			if err := freeOne(a, sa, true); err != nil {
				return errors.Wrapf(err, "worker %d drain", w.ID())
			}
		}
		return nil
	}

	if !opts.Concurrent {
		for _, w := range a.Workers() {
			if err := run(w); err != nil {
				return failures, peak, err
			}
		}
		return failures, peak, nil
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, a.NumWorkers())
	)
	for i, w := range a.Workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = run(w)
		}()
	}
	wg.Wait()
	return failures, peak, errors.Join(errs...)
}

func allocOne(a *vmap.Allocator, w *vmap.Worker, rng *rand.Rand, opts simOptions) (simAlloc, error) {
	ps := a.PageSize()
	r := rng.Float64()

	switch {
	case r < opts.CongruentRate:
		n := 2 + rng.Intn(3)
		areas := make([]vmap.CongruentArea, n)
		var off uint64
		for k := range areas {
			pages := uint64(1 + rng.Intn(8))
			areas[k] = vmap.CongruentArea{Offset: off, Size: pages * ps}
			off += (pages + uint64(rng.Intn(16))) * ps
		}
		base, err := a.AllocCongruent(areas, ps)
		var total uint64
		for _, ar := range areas {
			total += ar.Size
		}
		return simAlloc{kind: simCongruent, addr: base, areas: areas, size: total}, err

	case r < opts.CongruentRate+opts.SmallRatio:
		frames := make([]mapper.Frame, 1+rng.Intn(4))
		for k := range frames {
			frames[k] = mapper.Frame(rng.Uint64())
		}
		addr, err := w.MapRAM(frames, nil)
		return simAlloc{kind: simSmall, addr: addr, frames: len(frames), size: uint64(len(frames)) * ps}, err

	default:
		size := uint64(1+rng.Intn(64)) * ps
		align := ps << rng.Intn(4)
		addr, err := w.AllocRegion(size, align, 0, 0)
		return simAlloc{kind: simRegion, addr: addr, size: size}, err
	}
}

func freeOne(a *vmap.Allocator, sa simAlloc, lazy bool) error {
	switch sa.kind {
	case simCongruent:
		return a.FreeCongruent(sa.addr, sa.areas)
	case simSmall:
		return a.UnmapRAM(sa.addr, sa.frames)
	default:
		if lazy {
			return a.FreeRegionLazy(sa.addr)
		}
		return a.FreeRegion(sa.addr)
	}
}

func printSimResult(res *SimResult) {
	p := message.NewPrinter(language.English)
	s := res.Stats

	printInfo("Window: %s (page size %d, %d workers)\n", res.Window, res.PageSize, res.Workers)
	printInfo("%s", p.Sprintf("Operations: %d in %v (%d out of space)\n", res.Ops, res.Duration.Round(time.Millisecond), res.Failures))
	printInfo("%s", p.Sprintf("Peak busy: %d bytes\n", res.PeakBusy))
	printInfo("\nAllocation:\n")
	printInfo("%s", p.Sprintf("  Regions:       %d allocs, %d frees (%d lazy)\n", s.Allocs, s.Frees, s.LazyFrees))
	printInfo("%s", p.Sprintf("  Fit types:     full %d, left %d, right %d, split %d\n", s.FitFull, s.FitLeftEdge, s.FitRightEdge, s.FitNoEdge))
	printInfo("%s", p.Sprintf("  Split nodes:   spare %d, cache %d, locked %d\n", s.SplitSpare, s.SplitCache, s.SplitUnderLock))
	printInfo("%s", p.Sprintf("  Merges:        %d\n", s.Merges))
	printInfo("%s", p.Sprintf("  Congruent:     %d\n", s.CongruentAllocs))
	printInfo("\nBlocks:\n")
	printInfo("%s", p.Sprintf("  Small:         %d allocs, %d frees\n", s.SmallAllocs, s.SmallFrees))
	printInfo("%s", p.Sprintf("  Lifecycle:     %d created, %d purged, %d retired\n", s.BlocksCreated, s.BlocksPurged, s.BlocksRetired))
	printInfo("\nPurge:\n")
	printInfo("%s", p.Sprintf("  Purges:        %d (%d regions, %d flushes)\n", s.Purges, s.PurgedRegions, s.Flushes))
	printInfo("%s", p.Sprintf("  Flush calls:   %d\n", res.FlushCalls))
	printInfo("\nFinal state:\n")
	printInfo("%s", p.Sprintf("  Free:          %d regions, %d bytes\n", s.FreeRegions, s.FreeBytes))
	printInfo("%s", p.Sprintf("  Busy:          %d regions\n", s.BusyRegions))
	if res.FinalRegion != "" {
		printInfo("  Fully reclaimed: %s\n", res.FinalRegion)
	}
	printVerbose("  Cached nodes:  %d\n", s.CachedNodes)
}
