package jobs

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/fini03/vkduck/engine/core"
)

// Task is one unit of background work. OnComplete and OnFailure run on the
// worker goroutine after OnStart returns.
type Task struct {
	OnStart    func() (interface{}, error)
	OnComplete func(result interface{})
	OnFailure  func(err error)
}

type Pool struct {
	numWorkers int
	queue      chan Task
	wg         sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewPool(numWorkers int, channelSize int) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	p := &Pool{
		numWorkers: numWorkers,
		queue:      make(chan Task, channelSize),
	}
	p.start()
	return p, nil
}

// Default sizes the pool to the machine.
func Default() *Pool {
	p, _ := NewPool(runtime.NumCPU(), 64)
	return p
}

func (p *Pool) start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.queue {
				result, err := task.OnStart()
				if err != nil {
					core.LogError(err.Error())
					if task.OnFailure != nil {
						task.OnFailure(err)
					}
					continue
				}
				if task.OnComplete != nil {
					task.OnComplete(result)
				}
			}
		}()
	}
}

func (p *Pool) Shutdown() error {
	close(p.queue)
	p.wg.Wait()
	return nil
}

// Submit queues the task, blocking when the queue is full.
func (p *Pool) Submit(task Task) {
	p.queue <- task
}

// ForkJoin runs fns on the pool and waits for all of them. The first error
// wins; the remaining fns still run to completion.
func (p *Pool) ForkJoin(fns ...func() error) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, fn := range fns {
		fn := fn
		wg.Add(1)
		p.Submit(Task{
			OnStart: func() (interface{}, error) {
				defer wg.Done()
				if err := fn(); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return nil, err
				}
				return nil, nil
			},
			// Errors are collected above; nothing further to do.
			OnFailure: func(err error) {},
		})
	}

	wg.Wait()
	return firstErr
}
