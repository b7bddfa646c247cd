// Package version carries the build identity stamped into release
// binaries.
//
// Release builds set the variables through ldflags, for example:
//
//	go build -ldflags "-X github.com/edgex-exchange/edgex-sdk-go/internal/version.Version=1.0.0 \
//	                   -X github.com/edgex-exchange/edgex-sdk-go/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/edgex-exchange/edgex-sdk-go/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	// Version is the semantic release version; "dev" outside releases.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp in ISO 8601.
	BuildTime = "unknown"
)

// String renders the three build variables as one log-friendly line.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
