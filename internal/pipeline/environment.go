package pipeline

import (
	"context"

	"github.com/kottz/cgex/internal/environment"
	"github.com/kottz/cgex/internal/extraction"
)

// Runtime is a started environment as the runner uses it.
type Runtime interface {
	extraction.Runtime
	HealthCheck(ctx context.Context) error
	Cleanup(ctx context.Context)
	Stop(ctx context.Context)
}

// Starter launches a Runtime.
type Starter interface {
	Start(ctx context.Context) (Runtime, error)
}

type supervisorStarter struct {
	supervisor *environment.Supervisor
}

func (s supervisorStarter) Start(ctx context.Context) (Runtime, error) {
	env, err := s.supervisor.Start(ctx)
	if err != nil {
		return nil, err
	}
	return env, nil
}
