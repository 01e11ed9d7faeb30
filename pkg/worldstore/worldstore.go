// Package worldstore holds module-wide metadata.
package worldstore

// Version is the current worldstore release.
const Version = "0.1.0"
