package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// ServiceName identifies the binary in logs, health checks and the
// user agent sent to notifier APIs.
const ServiceName = "signalwatch"

var (
	// Version is set by ldflags during build
	Version = "dev"

	// GitCommit is set by ldflags during build
	GitCommit = ""

	// BuildDate is set by ldflags during build
	BuildDate = ""
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Service:   ServiceName,
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the info on one line for the version command.
func (i Info) String() string {
	parts := []string{fmt.Sprintf("%s %s", i.Service, i.Version)}

	if i.GitCommit != "" {
		parts = append(parts, "commit "+shortCommit(i.GitCommit))
	}
	if i.BuildDate != "" {
		parts = append(parts, "built "+i.BuildDate)
	}

	parts = append(parts, i.GoVersion, i.Platform)

	return strings.Join(parts, ", ")
}

// GetVersion prefers the ldflags value and falls back to module build info.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}

	return "dev"
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
