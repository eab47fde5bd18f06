// Package version holds the build version, overridable via -ldflags.
package version

// Version is the application version.
var Version = "v0.1.0"
