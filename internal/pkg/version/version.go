// Package version holds build-time identifiers, overwritten at link time
// via -ldflags by the release build.
package version

var (
	Version   = "0.1.0"
	BuildTime string
	GitCommit string
	GoVersion string
)

func GetVersion() string {
	return Version
}
