// Package telemetry provides OpenTelemetry initialization and helpers
// for distributed tracing across the moodbite server and worker.
//
// The package configures OTLP HTTP export for traces, logs and metrics, with support
// for Grafana Cloud and local collector backends.
package telemetry
