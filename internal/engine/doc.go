// Package engine executes workflow instances against their definitions. It
// owns the instance and step state machines, selects transitions after each
// step outcome, keeps the execution context current, and coordinates with
// the collaboration service for agent assignment and resource negotiation.
//
// All mutations of a given instance are serialized behind a per-instance
// lock, so transition evaluation always observes a consistent instance,
// context, and execution history.
package engine
