// Package version provides build-time version information for the application.
package version

import "runtime"

var (
	// Version is the application version (e.g., git tag or "dev")
	Version = "dev"
	// Commit is the git commit hash
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Product is the name sent in outbound User-Agent headers
const Product = "interviewprep"

// Info is the build description reported by /health and `adm version`
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// UserAgent returns the User-Agent for requests made to upstream providers
func UserAgent() string {
	return Product + "/" + Version
}
