package system

import "context"

// Service is a background component owned by the Application, such as the
// jobs scheduler that runs usage pruning and prayer archiving. The Manager
// starts services in registration order and stops them in reverse.
type Service interface {
	// Name identifies the service in logs and must be unique per Manager.
	Name() string
	// Start must return once the service is running; long work belongs in
	// goroutines the service owns.
	Start(ctx context.Context) error
	// Stop waits for in-flight work until ctx expires.
	Stop(ctx context.Context) error
}
