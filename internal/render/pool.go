// Fixed-size worker pool: N workers, FIFO task intake, no preemption.
package render

import (
	"runtime"
	"sync"
)

type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// newWorkerPool starts n workers; n < 1 means one per CPU core.
func newWorkerPool(n int) *workerPool {
	if n < 1 {
		n = runtime.NumCPU()
	}
	p := &workerPool{tasks: make(chan func(), 4*n)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// submit queues a task. Each task runs to completion on one worker without
// yielding. Tasks submitted after close are dropped.
func (p *workerPool) submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// close stops intake and waits for in-flight tasks to finish.
func (p *workerPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
