// Package version carries the build metadata stamped into the bev binaries
// via -ldflags at release time.
package version

var (
	// Version is the bev service version
	Version = "dev"
	// GitSHA is the git commit SHA the binary was built from
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
