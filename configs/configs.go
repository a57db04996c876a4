package configs

import (
	"database/sql"
	"sync"
	"time"

	"github.com/lomik/zapwriter"
)

var DefaultLoggerConfig = zapwriter.Config{
	Logger:           "",
	File:             "stdout",
	Level:            "debug",
	Encoding:         "json",
	EncodingTime:     "iso8601",
	EncodingDuration: "seconds",
}

type Configuration struct {
	sync.RWMutex
	Listen           string             `yaml:"listen"`
	Logger           []zapwriter.Config `yaml:"logger"`
	DatabaseType     string             `yaml:"database_type"`
	DatabaseURL      string             `yaml:"database_url"`
	DiscordToken     string             `yaml:"discord_token"`
	CurseForgeAPIKey string             `yaml:"curseforge_api_key"`
	CurseForgeAPIURL string             `yaml:"curseforge_api_url"`
	ModrinthAPIURL   string             `yaml:"modrinth_api_url"`
	UpstreamTimeout  time.Duration      `yaml:"upstream_timeout"`
	PollingInterval  time.Duration      `yaml:"polling_interval"`
	AdminUserID      string             `yaml:"admin_user_id"`

	DB *sql.DB `yaml:"-"`

	// Keys are "platform/project_id", guarded by the embedded mutex.
	WatchedProjects map[string]bool `yaml:"-"`
}

var Config = Configuration{
	Listen:           "127.0.0.1:8080",
	Logger:           []zapwriter.Config{DefaultLoggerConfig},
	DatabaseType:     "sqlite3",
	DatabaseURL:      "./mods2discord.db",
	CurseForgeAPIURL: "https://api.curseforge.com",
	ModrinthAPIURL:   "https://api.modrinth.com",
	UpstreamTimeout:  10 * time.Second,
	PollingInterval:  5 * time.Minute,
	WatchedProjects:  make(map[string]bool),
}

func (c *Configuration) GetDB() *sql.DB {
	return c.DB
}
