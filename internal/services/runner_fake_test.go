package services

import (
	"context"
)

// scriptedRunner fakes the helm CLI for tests. The handler receives each
// invocation's arguments; calls records them in order.
type scriptedRunner struct {
	calls   [][]string
	handler func(args []string) ([]byte, error)
}

func (r *scriptedRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args)
	if r.handler == nil {
		return nil, nil
	}
	return r.handler(args)
}

// called reports whether any recorded invocation starts with the verb,
// which may be one token ("pull") or two ("search repo").
func (r *scriptedRunner) called(verb string) bool {
	for _, call := range r.calls {
		if len(call) == 0 {
			continue
		}
		if call[0] == verb {
			return true
		}
		if len(call) > 1 && call[0]+" "+call[1] == verb {
			return true
		}
	}
	return false
}
