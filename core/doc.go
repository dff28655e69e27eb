// Package core provides the foundational domain types and contracts used by
// docmesh. It defines the abstractions shared by every other package:
//
//   - Agents (units of planned work implementing Learn / Plan / Execute)
//   - RunContexts (per-invocation shared state with usage accounting)
//   - Plans and Actions (agent-produced descriptions of work)
//   - ExecutionResults and EvaluationResults (outcomes and aggregates)
//   - Events and Listeners (orchestration notifications)
//
// The package keeps scheduling, persistence and model specifics out of scope
// so concrete agents and the orchestrator can depend on it without cycles.
package core
