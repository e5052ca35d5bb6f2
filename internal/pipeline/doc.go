// Package pipeline runs the per-URL scan pipeline and the batch
// orchestrator that schedules it.
//
// Each URL is processed by a Pipeline of three steps executed strictly in
// sequence: FetchStep (with rate limiting and retries), DetectStep and
// ScoreStep. The Orchestrator runs one pipeline per URL on a bounded
// errgroup, paces fetch attempts through a shared rate.Limiter, isolates
// per-URL failures, and turns batch cancellation into cancelled results.
//
// Every URL ends in exactly one terminal state. Results are returned in
// completion order; status transitions are also published on an optional
// event channel.
package pipeline
