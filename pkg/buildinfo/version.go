// Package buildinfo exposes version information injected at link time:
//
//	go build -ldflags "-X github.com/matzehuels/stridegraph/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/stridegraph/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/stridegraph/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the server in HTTP responses.
func UserAgent() string {
	return "stridegraph/" + Version
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
