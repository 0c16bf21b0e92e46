// Package api defines the shared data model for the workflow orchestration
// core: workflow definitions and templates, runtime instances and step
// executions, the versioned execution context, and the event catalog
// consumed by external layers.
//
// Runtime state types follow an immutable-update style: every state change
// returns a new value, and lifecycle transitions are typed methods that
// validate the move against an explicit transition table before producing
// the next state.
package api
