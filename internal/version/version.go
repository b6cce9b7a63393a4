/*
Package version provides build information for history-suits.

Values are set via ldflags during build:

	go build -ldflags "-X github.com/khanglvm/history-suits/internal/version.Version=v0.3.0 \
	  -X github.com/khanglvm/history-suits/internal/version.Commit=$(git rev-parse --short HEAD) \
	  -X github.com/khanglvm/history-suits/internal/version.Date=$(date -u +%Y-%m-%d)"

Without ldflags the binary reports a "dev" build.
*/
package version

var (
	// Version is the release tag (e.g., v0.3.0)
	Version = "dev"
	// Commit is the short git commit hash
	Commit = "none"
	// Date is the build date in UTC (YYYY-MM-DD)
	Date = "unknown"
)

// GetVersion returns version information as a formatted string
func GetVersion() string {
	return FormatVersion(Version, Commit, Date)
}

// FormatVersion formats version components into a display string
func FormatVersion(version, commit, date string) string {
	if version == "dev" {
		return version + " (development build)"
	}
	return version + " (commit: " + commit + ", built: " + date + ")"
}

// GetVersionComponents returns individual version components
func GetVersionComponents() (version, commit, date string) {
	return Version, Commit, Date
}
