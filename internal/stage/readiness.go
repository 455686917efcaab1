package stage

import (
	"context"
	"fmt"
)

// Health is the readiness of one run collaborator.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func (h Health) String() string {
	if h.Ready {
		return h.Name + ": ready"
	}
	return fmt.Sprintf("%s: not ready (%s)", h.Name, h.Detail)
}

// Healthy reports name as ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports name as not ready for the given reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// Checker is implemented by collaborators that can report readiness before
// a run starts without side effects.
type Checker interface {
	HealthCheck(context.Context) Health
}

// CheckAll runs every non-nil checker in order.
func CheckAll(ctx context.Context, checkers ...Checker) []Health {
	out := make([]Health, 0, len(checkers))
	for _, c := range checkers {
		if c == nil {
			continue
		}
		out = append(out, c.HealthCheck(ctx))
	}
	return out
}

// AllReady reports whether every record is ready.
func AllReady(results []Health) bool {
	for _, h := range results {
		if !h.Ready {
			return false
		}
	}
	return true
}
