// Package logging provides a minimal logging interface and adapters for docmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the orchestrator, agents and server use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - DocLogger with contextual helpers and model/execution log helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger("info", "json")
//	orch := orchestrator.New(func(o *orchestrator.Options) { o.Logger = logger })
//
// Arguments after the message are slog style key/value pairs.
package logging
