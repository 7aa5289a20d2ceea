// Package version contains information on the current version of the
// program. It is split from the main program for easy use.
package version

// Current is the string representing the current version of cfgparse.
const Current = "0.1.0"

// ServerCurrent is the version string reported by cmd/cfgserver, kept
// separate from Current so the server's on-the-wire API and the library's
// in-process behavior are free to version independently.
const ServerCurrent = "0.1.0"
