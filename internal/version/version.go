package version

import "fmt"

var (
	// Version is the release the binary was built from.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("sensorcheck %s (%s, built %s)", Version, GitSHA, BuildTime)
}
