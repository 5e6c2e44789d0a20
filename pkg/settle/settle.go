// Package settle provides a wait-for-all concurrency join: every task runs to
// completion and its outcome is captured individually, so one failure never
// aborts or hides its siblings.
package settle

import (
	"context"
	"sync"
)

// Result holds the outcome of a single settled task.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the task completed without error.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Task is one independent unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// All runs every task concurrently and waits for all of them to finish.
// Results are returned in task order. The context is passed through to each
// task but All itself never cancels siblings on failure.
func All[T any](ctx context.Context, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()
			value, err := task(ctx)
			results[i] = Result[T]{Value: value, Err: err}
		}(i, task)
	}
	wg.Wait()

	return results
}

// Summary counts settled outcomes.
type Summary struct {
	Successful int
	Failed     int
}

// Summarize tallies a result set into success/failure counts.
func Summarize[T any](results []Result[T]) Summary {
	var s Summary
	for _, r := range results {
		if r.Ok() {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// Errors returns the non-nil errors from a result set, in task order.
func Errors[T any](results []Result[T]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
