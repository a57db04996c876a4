package db

import (
	"fmt"
	"time"

	"database/sql"

	"github.com/lomik/zapwriter"
	"go.uber.org/zap"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{
		db: db,
	}
}

var ErrAlreadyExists error = fmt.Errorf("Already exists")

func (d *SQLite) AddTrackedProject(p *TrackedProject) (int, error) {
	stmt, err := d.db.Prepare("SELECT id FROM 'tracked_projects' where platform=? and project_id=? and guild_id=?;")
	if err != nil {
		return -1, err
	}

	rows, err := stmt.Query(p.Platform, p.ProjectID, p.GuildID)
	if err != nil {
		return -1, err
	}

	var id int
	if rows.Next() {
		err = rows.Scan(&id)
		if err != nil {
			return -1, err
		}
		rows.Close()
		return id, ErrAlreadyExists
	}
	rows.Close()

	stmt, err = d.db.Prepare("INSERT INTO 'tracked_projects' (platform, project_id, name, guild_id, channel_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return -1, err
	}

	_, err = stmt.Exec(p.Platform, p.ProjectID, p.Name, p.GuildID, p.ChannelID)
	if err != nil {
		return -1, err
	}

	stmt, err = d.db.Prepare("SELECT id FROM 'tracked_projects' where platform=? and project_id=? and guild_id=?;")
	if err != nil {
		return -1, err
	}

	rows, err = stmt.Query(p.Platform, p.ProjectID, p.GuildID)
	if err != nil {
		return -1, err
	}

	if rows.Next() {
		err = rows.Scan(&id)
		if err != nil {
			return -1, err
		}
	}
	rows.Close()

	return id, nil
}

func (d *SQLite) RemoveTrackedProject(platform, projectID, guildID string) error {
	stmt, err := d.db.Prepare("DELETE FROM 'tracked_projects' WHERE platform=? and project_id=? and guild_id=?")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(platform, projectID, guildID)

	return err
}

func (d *SQLite) ListTrackedProjects() ([]*TrackedProject, error) {
	rows, err := d.db.Query("SELECT id, platform, project_id, name, guild_id, channel_id FROM 'tracked_projects';")
	if err != nil {
		return nil, err
	}

	var result []*TrackedProject
	for rows.Next() {
		p := &TrackedProject{}
		err = rows.Scan(&p.Id, &p.Platform, &p.ProjectID, &p.Name, &p.GuildID, &p.ChannelID)
		if err != nil {
			continue
		}
		result = append(result, p)
	}
	rows.Close()

	return result, nil
}

func (d *SQLite) ListGuildTrackedProjects(guildID string) ([]*TrackedProject, error) {
	stmt, err := d.db.Prepare("SELECT id, platform, project_id, name, guild_id, channel_id FROM 'tracked_projects' where guild_id=?;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(guildID)
	if err != nil {
		return nil, err
	}

	var result []*TrackedProject
	for rows.Next() {
		p := &TrackedProject{}
		err = rows.Scan(&p.Id, &p.Platform, &p.ProjectID, &p.Name, &p.GuildID, &p.ChannelID)
		if err != nil {
			continue
		}
		result = append(result, p)
	}
	rows.Close()

	return result, nil
}

func (d *SQLite) FindDestinations(platform, projectID string) ([]Destination, error) {
	logger := zapwriter.Logger("find_destinations")
	stmt, err := d.db.Prepare("SELECT guild_id, channel_id FROM 'tracked_projects' where platform=? and project_id=?;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(platform, projectID)
	if err != nil {
		return nil, err
	}

	var result []Destination
	var dst Destination
	for rows.Next() {
		err = rows.Scan(&dst.GuildID, &dst.ChannelID)
		if err != nil {
			logger.Error("error retreiving data",
				zap.Error(err),
			)
			continue
		}
		result = append(result, dst)
	}
	rows.Close()

	return result, nil
}

// GetGuildSettings returns nil when the guild never changed its
// settings, callers are expected to fall back to defaults.
func (d *SQLite) GetGuildSettings(guildID string) (*GuildSettings, error) {
	stmt, err := d.db.Prepare("SELECT guild_id, notification_style, changelog_max_length FROM 'guild_settings' WHERE guild_id=?;")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(guildID)
	if err != nil {
		return nil, err
	}

	var result *GuildSettings
	if rows.Next() {
		s := &GuildSettings{}
		err = rows.Scan(&s.GuildID, &s.NotificationStyle, &s.ChangelogMaxLength)
		if err == nil {
			result = s
		}
	}
	rows.Close()

	return result, nil
}

func (d *SQLite) SetNotificationStyle(guildID, style string) error {
	return d.upsertGuildSettings(guildID, func(s *GuildSettings) {
		s.NotificationStyle = style
	})
}

func (d *SQLite) SetChangelogMaxLength(guildID string, length int) error {
	return d.upsertGuildSettings(guildID, func(s *GuildSettings) {
		s.ChangelogMaxLength = length
	})
}

func (d *SQLite) upsertGuildSettings(guildID string, change func(*GuildSettings)) error {
	current, err := d.GetGuildSettings(guildID)
	if err != nil {
		return err
	}

	exists := current != nil
	if !exists {
		current = &GuildSettings{
			GuildID:            guildID,
			NotificationStyle:  DefaultNotificationStyle,
			ChangelogMaxLength: DefaultChangelogMaxLength,
		}
	}
	change(current)

	var stmt *sql.Stmt
	if exists {
		stmt, err = d.db.Prepare("UPDATE 'guild_settings' SET notification_style=?, changelog_max_length=? where guild_id=?")
	} else {
		stmt, err = d.db.Prepare("INSERT INTO 'guild_settings' (notification_style, changelog_max_length, guild_id) VALUES (?, ?, ?)")
	}
	if err != nil {
		return err
	}

	_, err = stmt.Exec(current.NotificationStyle, current.ChangelogMaxLength, guildID)

	return err
}

func (d *SQLite) GetLastVersion(platform, projectID string) string {
	logger := zapwriter.Logger("get_last_version")
	version := ""
	stmt, err := d.db.Prepare("SELECT version from 'last_versions' where platform=? and project_id=?")
	if err != nil {
		logger.Error("error creating statement",
			zap.Error(err),
		)
		return version
	}
	rows, err := stmt.Query(platform, projectID)
	if err != nil {
		logger.Error("error retreiving data",
			zap.Error(err),
		)
		return version
	}
	for rows.Next() {
		err = rows.Scan(&version)
		if err != nil {
			logger.Error("error retreiving data",
				zap.Error(err),
			)
			break
		}
	}
	rows.Close()
	return version
}

func (d *SQLite) UpdateLastVersion(platform, projectID, version string, t time.Time) {
	logger := zapwriter.Logger("updater")
	id := -1
	stmt, err := d.db.Prepare("SELECT id FROM 'last_versions' where platform=? and project_id=?;")
	if err != nil {
		logger.Error("error creating statement to get current id",
			zap.Error(err),
		)
		return
	}
	rows, err := stmt.Query(platform, projectID)
	if err != nil {
		logger.Error("error retreiving data",
			zap.Error(err),
		)
		return
	}
	for rows.Next() {
		err = rows.Scan(&id)
		if err != nil {
			logger.Error("error retreiving data",
				zap.Error(err),
			)
			break
		}
	}
	rows.Close()

	if id != -1 {
		stmt, err = d.db.Prepare("UPDATE 'last_versions' SET version=?, date=? where id=?")
	} else {
		stmt, err = d.db.Prepare("INSERT INTO 'last_versions' (platform, project_id, version, date) VALUES (?, ?, ?, ?)")
	}
	if err != nil {
		logger.Error("error creating statement",
			zap.Error(err),
		)
		return
	}

	if id != -1 {
		_, err = stmt.Exec(version, t, id)
	} else {
		_, err = stmt.Exec(platform, projectID, version, t)
	}
	if err != nil {
		logger.Error("error updating data",
			zap.Error(err),
		)
		return
	}
}
