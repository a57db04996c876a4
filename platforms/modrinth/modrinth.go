package modrinth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DrexHD/discord-bot/format"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/lomik/zapwriter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const PlatformName = "modrinth"

// Project is the project record returned by the Modrinth v2 API.
type Project struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"title"`
	ProjectType string    `json:"project_type"`
	IconURL     string    `json:"icon_url"`
	Updated     time.Time `json:"updated"`
}

type Version struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	VersionNumber string    `json:"version_number"`
	Changelog     string    `json:"changelog"`
	DatePublished time.Time `json:"date_published"`
	VersionType   string    `json:"version_type"`
}

func (p *Project) Title() string {
	return p.Name
}

func (p *Project) VersionMarker() string {
	if p.Updated.IsZero() {
		return ""
	}
	return p.Updated.UTC().Format(time.RFC3339)
}

type Source struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewSource(baseURL string, timeout time.Duration) *Source {
	return &Source{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  zapwriter.Logger(PlatformName),
	}
}

func (s *Source) Name() string {
	return PlatformName
}

func (s *Source) FetchProject(projectID string) (platforms.Record, error) {
	resp, err := s.client.Get(fmt.Sprintf("%s/v2/project/%s", s.baseURL, projectID))
	if err != nil {
		return nil, errors.Wrap(err, "error fetching project")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(fmt.Sprintf("project is not accessible or doesn't exist, http_code: %v", resp.StatusCode))
	}

	project := &Project{}
	err = json.NewDecoder(resp.Body).Decode(project)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing project payload")
	}

	return project, nil
}

// LatestVersion lists the project's versions and resolves the first
// entry, which Modrinth orders newest first. Returns nil after logging
// a warning when the request times out, comes back non-200 or the
// project has no versions at all.
func (s *Source) LatestVersion(rec platforms.Record) *platforms.VersionInfo {
	project, ok := rec.(*Project)
	if !ok {
		s.logger.Warn("record is not a modrinth project",
			zap.String("record_title", rec.Title()),
		)
		return nil
	}

	resp, err := s.client.Get(fmt.Sprintf("%s/v2/project/%s/version", s.baseURL, project.ID))
	if err != nil {
		s.logger.Warn("version list request failed",
			zap.String("project", project.Name),
			zap.Error(err),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("version list request returned unexpected status",
			zap.String("project", project.Name),
			zap.Int("http_code", resp.StatusCode),
		)
		return nil
	}

	var versions []Version
	err = json.NewDecoder(resp.Body).Decode(&versions)
	if err != nil {
		s.logger.Warn("error parsing version list payload",
			zap.String("project", project.Name),
			zap.Error(err),
		)
		return nil
	}

	if len(versions) == 0 {
		s.logger.Warn("no version found",
			zap.String("project", project.Name),
		)
		return nil
	}
	version := versions[0]

	return &platforms.VersionInfo{
		Changelog: version.Changelog,
		Date:      version.DatePublished,
		IconURL:   project.IconURL,
		Name:      version.Name,
		Number:    version.VersionNumber,
		Type:      format.Capitalize(version.VersionType),
		URL:       fmt.Sprintf("https://modrinth.com/%s/%s/version/%s", project.ProjectType, project.Slug, version.VersionNumber),
	}
}
