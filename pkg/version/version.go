// Package version holds build information set through -ldflags:
//
//	go build -ldflags "-X github.com/NicolasHaas/godata/pkg/version.tag=v0.1.0
//	  -X github.com/NicolasHaas/godata/pkg/version.commit=abc1234
//	  -X github.com/NicolasHaas/godata/pkg/version.date=2026-01-01"
package version

var (
	tag    = ""
	commit = "unknown"
	date   = "unknown"
)

// String returns the tag, else the commit, else "dev".
func String() string {
	switch {
	case tag != "":
		return tag
	case commit != "unknown":
		return commit
	default:
		return "dev"
	}
}

// Full adds commit and build date to String where they are known.
func Full() string {
	switch {
	case tag != "":
		return tag + " (" + commit + ") built " + date
	case commit != "unknown":
		return commit + " built " + date
	default:
		return "dev"
	}
}
