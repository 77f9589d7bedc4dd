// Package gateway composes the request pipeline and owns the process
// lifecycle.
//
// NewPipeline wraps the routed handler in the fixed interceptor chain. A
// request is classified as public or protected by path prefix; both
// classes share the outer interceptors (recovery, logging, metrics,
// security headers, body cap, timeout, CORS, tracing) and differ in the
// inner ones: public requests are throttled by client address, protected
// requests by bearer credential and are then authenticated.
//
// Coordinator drives the Running -> Draining -> Stopped state machine in
// response to termination signals.
package gateway
