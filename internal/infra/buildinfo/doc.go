// Package buildinfo reports the respkv build version.
//
// Version, Commit and BuildTime may be set with ldflags:
//
//	go build -ldflags "-X github.com/basant256/respkv/internal/infra/buildinfo.Version=v0.1.0"
//
// When they are not, Get falls back to the module and VCS data embedded by
// the Go toolchain.
package buildinfo
