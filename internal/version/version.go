// Package version holds build metadata for the winter CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Info is the build metadata in a form the JSON writer can encode.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns "winter <version>" with an abbreviated commit when known.
func (i Info) Short() string {
	s := "winter " + i.Version
	if i.GitCommit != "" {
		c := i.GitCommit
		if len(c) > 12 {
			c = c[:12]
		}
		s += " (" + c + ")"
	}
	return s
}

// Write prints the metadata, coloring the version parts when colored is set.
func (i Info) Write(w io.Writer, colored bool) error {
	name := color.New(color.Bold)
	ver := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)
	for _, c := range []*color.Color{name, ver, dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	if _, err := fmt.Fprintf(w, "%s %s\n", name.Sprint("winter"), ver.Sprint(i.Version)); err != nil {
		return err
	}
	rows := [][2]string{
		{"commit", i.GitCommit},
		{"built", i.BuildDate},
		{"go", i.GoVersion},
		{"platform", i.Platform},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s %s\n", dim.Sprintf("%-9s", r[0]), r[1]); err != nil {
			return err
		}
	}
	return nil
}
