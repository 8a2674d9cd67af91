// Package metrics defines the sinks that observe source synchronisation.
// Concrete sinks live in infra/metrics and register themselves by name so
// the configuration can pick any combination of them.
package metrics
