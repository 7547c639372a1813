// Package orchestration drives the distributed relaxation: it runs the
// per-worker iteration loop, evaluates the stop condition on the globally
// reduced scalar, runs in-process cohorts and summarizes their results.
// Presentation is decoupled via the ProgressReporter and ResultPresenter
// interfaces.
package orchestration
