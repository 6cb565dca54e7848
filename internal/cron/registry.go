package cron

import (
	"context"
	"fmt"
)

// Job is one unit of periodic work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in the order they run within a cycle. Names key the
// execution history and metrics, so they must be unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order; nil entries are skipped so optional
// jobs can be passed straight through.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron: job %T has no name", job)
	}
	if _, taken := r.names[name]; taken {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Len() int {
	return len(r.jobs)
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
