// Package agent contains the documentation agents shipped with docmesh and
// the plumbing they share. The package focuses on three concerns:
//
//  1. Identity, default planning and model usage accounting (BaseAgent)
//  2. Concrete documentation roles (ResearchAgent, DocumentationAgent,
//     PromptAgent)
//  3. Prompt construction from static or dynamic instructions (Instruction)
//
// Execution Model:
//   - Agents read their input from the shared *core.RunContext (the "topic"
//     data key, or metadata written by an earlier agent)
//   - Results are written back as metadata under the agent's id so later
//     agents (and callers) can pick them up
//   - Every model call adds its token usage and estimated cost to the run
//     context
//
// Agents never sequence each other; ordering is the orchestrator's concern.
package agent
