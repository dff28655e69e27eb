// Package orchestrator implements the coordination layer of docmesh.
//
// The Orchestrator owns an agent registry, a registry of run contexts and a
// set of listeners. It drives agents through their lifecycle phases (learn,
// plan, execute) under one of three scheduling modes:
//
//   - Autonomous: every registered agent plans; plans run sequentially by
//     descending priority (stable, so ties keep registration order).
//   - Predefined: caller supplied plans run sequentially in the given order.
//   - Parallel: caller supplied plans run concurrently; results keep the
//     input order.
//
// In the autonomous and predefined modes no two executions overlap, up to
// Config.CallTimeout: a call that times out is abandoned rather than killed
// and may keep running until it observes the cancelled context, while the
// next plan already starts.
//
// # Failure Isolation
//
// A failing agent never aborts an orchestration. Errors, panics and timeouts
// are converted into failed ExecutionResults and reported to listeners as
// events. Orchestrate* calls only return an error for invalid input, such as
// a nil run context or a nil plan entry.
//
// # Dependencies
//
// Plan and action dependencies are validated before anything executes (no
// cycles, no references to unknown actions, plans or agents). A plan
// dependency names a plan id or an agent id; the latter stands for that
// agent's plans in the same batch. Dependencies are advisory: execution order
// is driven by priority or caller order only. A plan failing validation
// yields a failed result while its siblings still run.
//
// Each result carries a resource snapshot sampled around the execution
// unless the agent reported its own.
//
// # Observability
//
// Each orchestration opens an "orchestrator.<mode>" span with child spans per
// agent call, appends its results to the history store and emits
// OrchestrationComplete. Listeners are invoked synchronously in registration
// order; during parallel orchestration they may be invoked concurrently.
//
// # Example
//
//	orch := orchestrator.New(func(o *orchestrator.Options) {
//	    o.Config.CallTimeout = 30 * time.Second
//	})
//	_ = orch.RegisterAgent(researchAgent)
//	_ = orch.RegisterAgent(docAgent)
//
//	rc := orch.CreateContext(map[string]any{"topic": "Go generics"}, nil)
//	results, err := orch.OrchestrateAutonomous(ctx, rc)
//	if err != nil {
//	    return err
//	}
//	eval, _ := orch.Evaluate(ctx, results)
package orchestrator
