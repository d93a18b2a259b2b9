package mappers

import (
	"fmt"

	"github.com/qdispatch/qdispatch/pkg/circuit"
	"github.com/qdispatch/qdispatch/pkg/logging"
	"github.com/qdispatch/qdispatch/pkg/qjob"
	"github.com/qdispatch/qdispatch/pkg/result"
	"github.com/qdispatch/qdispatch/pkg/transpile"
	"github.com/qdispatch/qdispatch/pkg/worker"
)

// CostFunc reduces one decoded result to the scalar an optimizer minimizes
type CostFunc func(*result.Result) (float64, error)

// JobMapper evaluates a population of parameter vectors by reusing a fixed
// set of already submitted parametric jobs: each vector is pushed to the
// job at the same index through its parameter-update channel, results are
// gathered in order and reduced with the cost function. Intended as the
// workers argument of population-based optimizers.
type JobMapper struct {
	jobs   []*qjob.Job
	logger *logging.Logger
}

// NewJobMapper wraps an existing set of submitted jobs
func NewJobMapper(jobs []*qjob.Job, logger *logging.Logger) (*JobMapper, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one job is required")
	}
	for i, j := range jobs {
		if j == nil {
			return nil, fmt.Errorf("job %d is nil", i)
		}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("job mapper initialized", map[string]interface{}{"jobs": len(jobs)})
	return &JobMapper{jobs: jobs, logger: logger}, nil
}

// Map assigns population[i] to job i, gathers the re-simulated results and
// returns cost applied to each, in population order.
func (m *JobMapper) Map(cost CostFunc, population [][]float64) ([]float64, error) {
	if len(population) > len(m.jobs) {
		return nil, fmt.Errorf("population of %d exceeds the %d available jobs", len(population), len(m.jobs))
	}

	active := m.jobs[:len(population)]
	for i, params := range population {
		if err := active[i].UpgradeParameters(params); err != nil {
			return nil, fmt.Errorf("updating parameters of job %d: %w", i, err)
		}
	}

	m.logger.Debug("gathering results", map[string]interface{}{"jobs": len(active)})
	results, err := qjob.Gather(active)
	if err != nil {
		return nil, err
	}
	return reduce(cost, results)
}

// WorkerCircuitMapper evaluates a population of parameter vectors by
// binding each vector to a parametric template circuit and running the
// bound circuit on the workers round-robin. Unlike JobMapper it creates a
// fresh job per vector.
type WorkerCircuitMapper struct {
	workers   []*worker.Worker
	template  *circuit.Snapshot
	binder    transpile.Binder
	runParams map[string]interface{}
	logger    *logging.Logger
}

// NewWorkerCircuitMapper builds a mapper from a parametric circuit in any
// accepted representation, the workers to spread evaluations over, and the
// binder that assigns parameter vectors to the circuit's parametric gates.
func NewWorkerCircuitMapper(workers []*worker.Worker, circ interface{}, binder transpile.Binder, runParams map[string]interface{}, logger *logging.Logger) (*WorkerCircuitMapper, error) {
	if len(workers) == 0 {
		return nil, fmt.Errorf("at least one worker is required")
	}
	if binder == nil {
		return nil, fmt.Errorf("a parameter binder is required")
	}
	template, err := circuit.NewSnapshot(circ)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("worker circuit mapper initialized", map[string]interface{}{"workers": len(workers)})
	return &WorkerCircuitMapper{
		workers:   workers,
		template:  template,
		binder:    binder,
		runParams: runParams,
		logger:    logger,
	}, nil
}

// Map binds each parameter vector to the template, submits the bound
// circuits round-robin over the workers, gathers the results in order and
// returns cost applied to each.
func (m *WorkerCircuitMapper) Map(cost CostFunc, population [][]float64) ([]float64, error) {
	jobs := make([]*qjob.Job, 0, len(population))
	for i, params := range population {
		bound, err := m.binder.Bind(m.template, params)
		if err != nil {
			return nil, fmt.Errorf("binding parameters for vector %d: %w", i, err)
		}
		w := m.workers[i%len(m.workers)]
		job, err := w.Run(bound, &worker.RunOptions{Params: m.runParams})
		if err != nil {
			return nil, fmt.Errorf("running vector %d on worker %q: %w", i, w.ID, err)
		}
		jobs = append(jobs, job)
	}

	m.logger.Debug("gathering results", map[string]interface{}{"jobs": len(jobs)})
	results, err := qjob.Gather(jobs)
	if err != nil {
		return nil, err
	}
	return reduce(cost, results)
}

func reduce(cost CostFunc, results []*result.Result) ([]float64, error) {
	values := make([]float64, len(results))
	for i, res := range results {
		v, err := cost(res)
		if err != nil {
			return nil, fmt.Errorf("cost function failed on result %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
