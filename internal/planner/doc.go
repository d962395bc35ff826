// internal/planner/doc.go

// Package planner is the client side of the planning oracle. It packages the
// goal, the reduced element view, the history and an optional page snapshot
// into a request and turns the reply into a typed plan.
package planner
