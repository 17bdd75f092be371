// Package version holds the build version string.
package version

// Version is the application version, overridable at build time via
// -ldflags "-X .../pkg/version.Version=...".
var Version = "0.3.0-dev"
