// Package buildinfo carries version data injected at link time with -ldflags "-X".
package buildinfo

import (
	"fmt"
	"io"
	"runtime"
)

var (
	Version = ""
	Date    = ""
	Commit  = ""
)

func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// Write prints the build version, date, commit and Go runtime to w.
func Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Build version: %s\nBuild date: %s\nBuild commit: %s\nGo: %s %s/%s\n",
		na(Version), na(Date), na(Commit), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return err
}
