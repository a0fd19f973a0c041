package version

var (
	// Version is the current skim version, stamped at build time.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the version line printed by `topskim version` and stored
// with every run record.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
