package qjob

import (
	"fmt"

	"github.com/qdispatch/qdispatch/pkg/result"
)

// Gather blocks until every job in jobs has resolved and returns their
// results in input order, regardless of which worker finished first. Jobs
// run concurrently on their respective workers, so the wall-clock cost is
// dominated by the slowest job; the waits themselves happen sequentially.
func Gather(jobs []*Job) ([]*result.Result, error) {
	if jobs == nil {
		return nil, fmt.Errorf("a list of jobs is required")
	}
	for i, j := range jobs {
		if j == nil {
			return nil, fmt.Errorf("job %d is nil; all gathered jobs must be valid handles", i)
		}
	}

	results := make([]*result.Result, len(jobs))
	for i, j := range jobs {
		res, err := j.Result()
		if err != nil {
			return nil, fmt.Errorf("gathering job %d (circuit %q): %w", i, j.CircuitID(), err)
		}
		results[i] = res
	}
	return results, nil
}
