package utils

import (
	"fmt"
	"runtime"
	"sync"
)

type CompletedTask[T any] struct {
	Result T
	Error  error
}

func RunInPool[In any, Out any](worker func(In) (Out, error), queue chan In, completed chan CompletedTask[Out], maxWorkers int) {
	workers := min(len(queue), maxWorkers)

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for next := range queue {
					res, err := worker(next)
					completed <- CompletedTask[Out]{Result: res, Error: err}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()
}

type indexed[T any] struct {
	index int
	value T
}

// MapRows calls fn for every index in [0, n) on a pool of workers and returns
// the results in index order. maxWorkers <= 0 uses GOMAXPROCS. A panic in fn
// is raised again on the calling goroutine once all workers are done.
func MapRows[Out any](n, maxWorkers int, fn func(i int) Out) []Out {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	queue := make(chan int, n)
	for i := 0; i < n; i++ {
		queue <- i
	}
	close(queue)

	completed := make(chan CompletedTask[indexed[Out]], n)
	RunInPool(func(i int) (res indexed[Out], err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("row %d: %v", i, r)
			}
		}()
		return indexed[Out]{index: i, value: fn(i)}, nil
	}, queue, completed, maxWorkers)

	var failure error
	results := make([]Out, n)
	for task := range completed {
		if task.Error != nil {
			if failure == nil {
				failure = task.Error
			}
			continue
		}
		results[task.Result.index] = task.Result.value
	}

	if failure != nil {
		panic(failure)
	}
	return results
}
