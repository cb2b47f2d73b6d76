// Package build provides build-time metadata for the rxn3d-core binary.
// The variables are overridden at link time via -ldflags.
package build

var (
	// ProjectName is used to prefix metric names and log fields.
	ProjectName = "rxn3d_core"

	// Version is the release version, e.g. `0.4.1`.
	Version = "dev"

	// Commit is the git commit hash the binary was built from.
	Commit = "none"

	// Date is the build date.
	Date = "unknown"
)
