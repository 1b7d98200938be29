// Package async runs named tasks on a bounded set of goroutines and collects
// their results by name.
package async

import (
	"context"
	"fmt"
	"sync"
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

type Result struct {
	Name string
	Data any
	Err  error
}

// Pool bounds how many tasks of one Execute call run at once. A Pool holds no
// per-call state and can be shared.
type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs tasks and returns their results keyed by task name. When ctx
// is cancelled, tasks not yet started report ctx.Err(). A panicking task
// reports an error instead of crashing the process.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	queue := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	workers := p.workerCount
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				results <- run(ctx, task)
			}
		}()
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			results <- Result{Name: task.Name, Err: ctx.Err()}
			continue
		}
		queue <- task
	}
	close(queue)
	wg.Wait()
	close(results)

	collected := make(map[string]Result, len(tasks))
	for r := range results {
		collected[r.Name] = r
	}
	return collected
}

func run(ctx context.Context, task Task) (result Result) {
	result.Name = task.Name
	defer func() {
		if r := recover(); r != nil {
			result.Data = nil
			result.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	result.Data, result.Err = task.Execute(ctx)
	return result
}
