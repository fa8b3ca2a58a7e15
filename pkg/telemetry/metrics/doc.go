// Package metrics provides Prometheus collectors for the cache lifecycle
// and cost accounting. Collectors register on an injected registry so
// tests and embedders control exposition.
package metrics
