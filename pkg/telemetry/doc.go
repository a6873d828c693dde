// Package telemetry wires OpenTelemetry exporters and meters for the flavor
// host.
//
// It centralises trace provider setup, records flavor resolutions and channel
// calls as metric instruments, and offers a channel middleware that opens a
// span per dispatched call so operators can correlate guest calls with host
// behaviour.
package telemetry
