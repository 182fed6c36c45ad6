package core

import "context"

// IService is implemented by every external collaborator. Init is called once
// by the factories before the service is handed to a session; Cleanup when the
// process shuts down.
type IService interface {
	Init(ctx context.Context) error
	Cleanup() error
}

// Named is implemented by services that can report their provider name for logs.
type Named interface {
	Name() string
}

// ServiceName returns the provider name of svc, or "unknown".
func ServiceName(svc any) string {
	if n, ok := svc.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
