// Package version reports build information and the capabilities of the
// linked SQLite library.
package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
	SQLite    string
}

// Get returns version information. sqlite is the linked library version.
func Get(sqlite string) Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		SQLite:    sqlite,
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("litecore version %s (%s %s, sqlite %s)", i.Version, i.Platform, i.GoVersion, i.SQLite)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	return fmt.Sprintf(`litecore version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s
SQLite: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion, i.SQLite)
}

// Feature is an SQLite capability that depends on the library version.
type Feature struct {
	Name    string
	Minimum string
}

// Features lists the version-gated SQLite features litecore relies on.
var Features = []Feature{
	{Name: "RETURNING clause", Minimum: "3.35.0"},
	{Name: "UPSERT (ON CONFLICT DO UPDATE)", Minimum: "3.24.0"},
	{Name: "json_* functions", Minimum: "3.38.0"},
	{Name: "STRICT tables", Minimum: "3.37.0"},
	{Name: "JSONB", Minimum: "3.45.0"},
}

// Support is the result of checking one Feature.
type Support struct {
	Feature
	Supported bool
}

// CheckFeatures compares the SQLite library version against Features.
func CheckFeatures(sqlite string) ([]Support, error) {
	current, err := goversion.NewVersion(sqlite)
	if err != nil {
		return nil, fmt.Errorf("invalid sqlite version %q: %w", sqlite, err)
	}

	out := make([]Support, 0, len(Features))
	for _, f := range Features {
		minimum, err := goversion.NewVersion(f.Minimum)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum version %q: %w", f.Minimum, err)
		}
		out = append(out, Support{Feature: f, Supported: current.GreaterThanOrEqual(minimum)})
	}
	return out, nil
}
