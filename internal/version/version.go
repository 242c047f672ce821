package version

// Values are set via -ldflags at build time; defaults are for dev builds.
var (
	Version = "dev"     // e.g. v0.3.1 or git describe output
	Commit  = "none"    // short git SHA
	Date    = "unknown" // build UTC timestamp
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
