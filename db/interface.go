package db

import (
	"time"
)

const (
	NotificationStyleCompact = "compact"
	NotificationStyleFull    = "full"

	DefaultNotificationStyle  = NotificationStyleFull
	DefaultChangelogMaxLength = 250
)

type Database interface {
	// Tracked projects
	AddTrackedProject(p *TrackedProject) (int, error)
	RemoveTrackedProject(platform, projectID, guildID string) error
	ListTrackedProjects() ([]*TrackedProject, error)
	ListGuildTrackedProjects(guildID string) ([]*TrackedProject, error)
	FindDestinations(platform, projectID string) ([]Destination, error)

	// Guild settings
	GetGuildSettings(guildID string) (*GuildSettings, error)
	SetNotificationStyle(guildID, style string) error
	SetChangelogMaxLength(guildID string, length int) error

	// Poller state
	GetLastVersion(platform, projectID string) string
	UpdateLastVersion(platform, projectID, version string, t time.Time)
}

// TrackedProject is one subscription row: a guild channel following a
// project on one of the upstream platforms. Many rows may reference the
// same (platform, project_id).
type TrackedProject struct {
	Id        int
	Platform  string
	ProjectID string
	Name      string
	GuildID   string
	ChannelID string
}

type Destination struct {
	GuildID   string
	ChannelID string
}

type GuildSettings struct {
	GuildID            string
	NotificationStyle  string
	ChangelogMaxLength int
}
