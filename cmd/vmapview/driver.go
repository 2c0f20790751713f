package main

import (
	"math/rand"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/vmapkit/vmap"
	"github.com/joshuapare/vmapkit/vmap/mapper"
)

// Options configures the simulated window.
type Options struct {
	Pages    uint64
	PageSize uint64
	Workers  int
	Seed     int64
}

func defaultOptions() Options {
	return Options{Pages: 16384, PageSize: 4096, Workers: 4, Seed: 1}
}

type liveAlloc struct {
	addr   vmap.Address
	frames int // 0 for plain regions
}

// driver issues a random mix of allocations and frees, rotating over the
// allocator's workers.
type driver struct {
	a    *vmap.Allocator
	rng  *rand.Rand
	live []liveAlloc
	next int

	steps    int
	failures int
}

func newDriver(a *vmap.Allocator, seed int64) *driver {
	return &driver{a: a, rng: rand.New(rand.NewSource(seed))}
}

// step performs one allocation or free. Running out of space is counted,
// not returned.
func (d *driver) step() error {
	d.steps++
	w := d.a.Worker(d.next % d.a.NumWorkers())
	d.next++

	if len(d.live) > 0 && d.rng.Intn(5) >= 3 {
		j := d.rng.Intn(len(d.live))
		la := d.live[j]
		d.live[j] = d.live[len(d.live)-1]
		d.live = d.live[:len(d.live)-1]
		return d.free(la, d.rng.Intn(4) > 0)
	}

	var (
		la  liveAlloc
		err error
	)
	if d.rng.Intn(2) == 0 {
		frames := make([]mapper.Frame, 1+d.rng.Intn(8))
		for i := range frames {
			frames[i] = mapper.Frame(d.rng.Uint64())
		}
		la.frames = len(frames)
		la.addr, err = w.MapRAM(frames, nil)
	} else {
		ps := d.a.PageSize()
		la.addr, err = w.AllocRegion(vmap.Size(1+d.rng.Intn(128))*ps, ps<<d.rng.Intn(3), 0, 0)
	}
	switch {
	case errors.Is(err, vmap.ErrOutOfSpace):
		d.failures++
		return nil
	case err != nil:
		return err
	}
	d.live = append(d.live, la)
	return nil
}

func (d *driver) free(la liveAlloc, lazy bool) error {
	switch {
	case la.frames > 0:
		return d.a.UnmapRAM(la.addr, la.frames)
	case lazy:
		return d.a.FreeRegionLazy(la.addr)
	default:
		return d.a.FreeRegion(la.addr)
	}
}

// freeAll releases every live allocation lazily.
func (d *driver) freeAll() error {
	var errs error
	for _, la := range d.live {
		errs = errors.CombineErrors(errs, d.free(la, true))
	}
	d.live = d.live[:0]
	return errs
}
