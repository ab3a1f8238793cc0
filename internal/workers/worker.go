package workers

// Worker is one scheduled background job owner.
type Worker interface {
	// Start schedules the worker's cron entries.
	Start() error

	// Stop gracefully stops the worker
	Stop()

	// Name returns the worker name for logging
	Name() string
}
