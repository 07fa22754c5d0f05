// Package version carries the binary's build identity, injected at link
// time:
//
//	go build -ldflags "-X .../pkg/version.Version=v1.2.3 -X .../pkg/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
