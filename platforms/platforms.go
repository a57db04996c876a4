// Package platforms defines the common shape of "latest version"
// lookups across the upstream project-hosting platforms.
package platforms

import "time"

// VersionInfo is the normalized view of one published version,
// computed once per update event and shared by every notification
// rendered for it.
type VersionInfo struct {
	Changelog string
	Date      time.Time
	IconURL   string
	Name      string
	Number    string
	Type      string
	URL       string
}

// Record is an opaque, platform-specific project metadata payload. The
// generic code only needs a display title and a marker that changes
// whenever a new version is published.
type Record interface {
	Title() string
	VersionMarker() string
}

// Source is implemented once per platform. FetchProject retrieves the
// project metadata record; LatestVersion resolves the newest version
// out of a previously fetched record. LatestVersion returns nil after
// logging a warning when the version cannot be resolved (upstream
// timeout, non-200 response, empty version list).
type Source interface {
	Name() string
	FetchProject(projectID string) (Record, error)
	LatestVersion(rec Record) *VersionInfo
}
