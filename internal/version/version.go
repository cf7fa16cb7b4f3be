// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

var (
	// Version is the release tag, set with
	// -ldflags "-X github.com/ManuGH/vcollect/internal/version.Version=v1.2.3".
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the one-line form printed by the version command.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
