// Package metrics exports pipeline and queue activity as Prometheus
// metrics. A Metrics value is both a pipeline.Observer and a
// queue.Observer; attach it to the orchestrator and the queue and serve
// Handler on a /metrics endpoint.
package metrics
