// Package version reports the build of the gobexport binary.
//
// Values are stamped at build time and completed from the VCS settings
// embedded by the Go toolchain:
//
//	go build -ldflags "-X github.com/kbukum/gobexport/version.Version=1.4.0"
package version
