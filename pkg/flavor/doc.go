// Package flavor resolves the build flavor of the running binary and exposes
// it on a method channel.
//
// Resolution is written once, over an injected Provider: a non-empty value is
// returned unchanged, anything else (empty, error, panic) yields
// domain.DefaultFlavor. Providers model the different build-time signals:
// a string baked in with -ldflags (Embedded), build-tag selected symbols
// (CompiledSymbols), environment variables (Env), and string resource files
// (Resource, WatchedResource).
package flavor
