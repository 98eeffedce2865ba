package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/matthieu-m/storage/bumpstore"
	"github.com/matthieu-m/storage/codec"
	"github.com/matthieu-m/storage/concvec"
	"github.com/matthieu-m/storage/heapstore"
	"github.com/matthieu-m/storage/singlestore"
	"github.com/matthieu-m/storage/skiplist"
	"github.com/matthieu-m/storage/store"
)

// dumpLimit bounds the entries written by -dump.
const dumpLimit = 16

type config struct {
	threads  int
	elements int
	keys     int
	seed     uint64
	dump     bool
	logger   *slog.Logger
}

// stores gives the two workloads their stores and reads back backend
// statistics once they are done.
type stores[H store.Handle] struct {
	vec   store.Store[H]
	list  store.Store[H]
	stats func(*report)
}

func runBackend(name string, cfg config) (*report, error) {
	// Bump blocks get room for every payload, node and head growth.
	bumpSize := 64 * (cfg.threads*cfg.elements + 2*cfg.keys + 1024)

	switch name {
	case "heap":
		s := heapstore.New(heapstore.WithLogger(cfg.logger))
		part, err := s.Share()
		if err != nil {
			return nil, err
		}
		return run(name, cfg, stores[heapstore.Handle]{
			vec:  s,
			list: part,
			stats: func(r *report) {
				st := s.Stats()
				r.Heap = &st
				if err := s.Validate(); err != nil {
					r.Errors = append(r.Errors, err.Error())
				}
			},
		})

	case "bump":
		vec, err := bumpstore.NewInline[uint32](bumpSize, 8)
		if err != nil {
			return nil, err
		}
		list, err := bumpstore.NewInline[uint32](bumpSize, 8)
		if err != nil {
			return nil, err
		}
		return run(name, cfg, stores[uint32]{
			vec:  vec,
			list: list,
			stats: func(r *report) {
				r.BumpUsed = vec.Used() + list.Used()
			},
		})

	case "shared":
		blk, err := bumpstore.NewBlock(2*bumpSize, 8)
		if err != nil {
			return nil, err
		}
		vec, err := bumpstore.NewShared[uint32](blk)
		if err != nil {
			return nil, err
		}
		list, err := vec.Share()
		if err != nil {
			return nil, err
		}
		return run(name, cfg, stores[uint32]{
			vec:  vec,
			list: list,
			stats: func(r *report) {
				r.BumpUsed = blk.Used()
			},
		})

	case "single":
		size := 8 * cfg.threads * cfg.elements
		vec, err := singlestore.New(size, 8)
		if err != nil {
			return nil, err
		}
		list, err := singlestore.New(4096, 8)
		if err != nil {
			return nil, err
		}
		return run(name, cfg, stores[singlestore.Handle]{vec: vec, list: list})

	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func run[H store.Handle](name string, cfg config, st stores[H]) (*report, error) {
	rep := &report{
		Backend:      name,
		Capabilities: st.vec.Capabilities().String(),
	}

	vr, err := runVec(cfg, st.vec)
	if err != nil {
		return nil, fmt.Errorf("vector workload: %w", err)
	}
	rep.Vec = vr

	lr, err := runList(cfg, st.list)
	switch {
	case errors.Is(err, store.ErrUnsupported):
		cfg.logger.Info("skip list workload skipped", "backend", name, "error", err)
		rep.Errors = append(rep.Errors, err.Error())
	case err != nil:
		return nil, fmt.Errorf("skip list workload: %w", err)
	default:
		rep.SkipList = lr
	}

	if st.stats != nil {
		st.stats(rep)
	}
	return rep, nil
}

func runVec[H store.Handle](cfg config, s store.Store[H]) (*vecReport, error) {
	threads := cfg.threads
	if !s.Capabilities().Has(store.Concurrent) && threads > 1 {
		cfg.logger.Warn("store is not concurrent, pushing from one goroutine", "threads", threads)
		threads = 1
	}
	perThread := cfg.threads * cfg.elements / threads

	v, err := concvec.New[H, int](s, cfg.threads*cfg.elements, codec.Int[int]{}, concvec.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	defer v.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	start := time.Now()
	for th := range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range perThread {
				if err := v.Push(th*perThread + e); err != nil {
					mu.Lock()
					rejected++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// One push past capacity must hand its value back.
	overflow := v.Push(-1)
	var rej *concvec.RejectedError[int]
	if !errors.As(overflow, &rej) || rej.Value != -1 {
		return nil, fmt.Errorf("push into a full vector returned %v", overflow)
	}

	if cfg.dump {
		spew.Fdump(os.Stderr, v.Slice()[:min(v.Len(), dumpLimit)])
	}

	cfg.logger.Info("vector workload done", "len", v.Len(), "elapsed", elapsed)
	return &vecReport{
		Threads:  threads,
		Capacity: v.Capacity(),
		Len:      v.Len(),
		Rejected: rejected,
		Elapsed:  elapsed.String(),
	}, nil
}

func runList[H store.Handle](cfg config, s store.Store[H]) (*listReport, error) {
	l, err := skiplist.New[H, int, string](s, codec.Int[int]{}, codec.String{},
		skiplist.WithSeed(cfg.seed), skiplist.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	defer l.Clear()

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed+1))
	want := make(map[int]string, cfg.keys)

	rep := &listReport{}
	start := time.Now()
	for i := range cfg.keys {
		k := rng.IntN(2*cfg.keys + 1)
		v := fmt.Sprint(i)
		_, replaced, err := l.Insert(k, v)
		if err != nil {
			return nil, err
		}
		if replaced {
			rep.Replaced++
		}
		want[k] = v
	}
	for k, v := range want {
		if got, ok := l.Get(k); !ok || got != v {
			rep.Missing++
		}
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if cfg.dump {
		var head []skiplist.Entry[int, string]
		for k, v := range l.All() {
			if len(head) == dumpLimit {
				break
			}
			head = append(head, skiplist.Entry[int, string]{Key: k, Value: v})
		}
		spew.Fdump(os.Stderr, head)
	}

	cfg.logger.Info("skip list workload done", "len", l.Len(), "height", l.Height(), "elapsed", elapsed)
	rep.Inserts = cfg.keys
	rep.Len = l.Len()
	rep.Height = l.Height()
	rep.Histogram = l.LinkHistogram()
	rep.Elapsed = elapsed.String()
	return rep, nil
}
