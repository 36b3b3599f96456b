// Package metrics exposes Prometheus metrics for example stores.
//
// MetricsServer owns a private registry and serves it on its own address, away
// from the store API. InstrumentedBackend decorates any
// interfaces.ExampleDatabase and records one counter increment and one latency
// observation per operation, labelled with backend name, operation and outcome.
package metrics
