// Package domain defines the core types shared by the flavor resolver and the
// method-channel layer.
//
// This package has ZERO external dependencies outside the Go standard library.
// Infrastructure packages (flavor providers, the channel bridge, telemetry)
// depend on these types, never the other way round:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
