// Package buildinfo holds version metadata injected at link time via
// -ldflags, the way the teacher's cmd binaries are stamped.
package buildinfo

// Version, Commit, and Date default to "dev"/"unknown" for a local build and
// are overridden at release time with:
//
//	-ldflags "-X github.com/brunthaler/mediatester/internal/buildinfo.Version=... \
//	          -X github.com/brunthaler/mediatester/internal/buildinfo.Commit=... \
//	          -X github.com/brunthaler/mediatester/internal/buildinfo.Date=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders a one-line summary for the -V/--version flag.
func String() string {
	return "mediatester " + Version + " (" + Commit + ", built " + Date + ")"
}
