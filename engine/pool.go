package engine

import "sync"

// Pool is the fixed-size worker pool of spec §5: "A pool of worker
// threads is created at startup with a fixed, tunable count... A single
// join call is typically single-threaded; parallelism comes from
// running independent operator calls on different threads." Go
// goroutines are cheap enough that Pool does not pre-spawn worker
// goroutines the way a thread pool would; it bounds concurrency with a
// semaphore and reuses scratch buffers via sync.Pool, the two aspects
// of a worker pool that actually matter for this workload.
type Pool struct {
	sem     chan struct{}
	scratch sync.Pool
}

// NewPool returns a Pool admitting at most size concurrent operator
// calls.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem: make(chan struct{}, size),
		scratch: sync.Pool{
			New: func() interface{} { return make([]int, 0, 256) },
		},
	}
}

// Go runs fn on the pool, blocking until a slot is free.
func (p *Pool) Go(fn func()) {
	p.sem <- struct{}{}
	go func() {
		defer func() { <-p.sem }()
		fn()
	}()
}

// RunAll runs every fn concurrently, bounded by the pool's size, and
// waits for them all to finish -- the "fan out independent operator
// calls across threads" pattern spec §5 describes. The first non-nil
// error is returned; all fns still run to completion.
func (p *Pool) RunAll(fns []func() error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(fns))
	wg.Add(len(fns))
	for i, fn := range fns {
		i, fn := i, fn
		p.Go(func() {
			defer wg.Done()
			errs[i] = fn()
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// scratchBuf borrows a reusable []int scratch buffer, reset to length 0.
func (p *Pool) scratchBuf() []int {
	buf := p.scratch.Get().([]int)
	return buf[:0]
}

// releaseBuf returns a scratch buffer borrowed from scratchBuf.
func (p *Pool) releaseBuf(buf []int) {
	p.scratch.Put(buf)
}
