// Package runner implements the documentation pipeline on top of the
// orchestrator.
//
// A Pipeline turns a topic into a run: it creates a run context seeded with
// the topic, drives the research, documentation and prompt optimisation
// agents in the requested mode, evaluates the batch and returns the results
// together with the agent outputs and accumulated usage.
//
// # Responsibilities
//   - Mode selection (sequential, parallel, autonomous)
//   - Error handling policy (lenient or strict)
//   - Retries of failed sequential runs on child contexts
//   - Run lifecycle management and cancellation
//
// The factory helpers (NewModel, NewHistory, NewDocumentationAgents) build
// the configured dependencies from a config.Config.
package runner
