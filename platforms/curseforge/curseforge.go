package curseforge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/DrexHD/discord-bot/format"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/lomik/zapwriter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const PlatformName = "curseforge"

// Mod is the project metadata record returned by the CurseForge v1
// API. Only the fields the bot consumes are mapped.
type Mod struct {
	ID                 int         `json:"id"`
	Name               string      `json:"name"`
	Slug               string      `json:"slug"`
	ClassID            int         `json:"classId"`
	Logo               Logo        `json:"logo"`
	LatestFiles        []File      `json:"latestFiles"`
	LatestFilesIndexes []FileIndex `json:"latestFilesIndexes"`
}

type Logo struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type File struct {
	ID          int       `json:"id"`
	DisplayName string    `json:"displayName"`
	FileName    string    `json:"fileName"`
	FileDate    time.Time `json:"fileDate"`
	ReleaseType int       `json:"releaseType"`
}

type FileIndex struct {
	GameVersion string `json:"gameVersion"`
	FileID      int    `json:"fileId"`
}

func (m *Mod) Title() string {
	return m.Name
}

// VersionMarker is the id of the most recent file, the last entry of
// latestFiles.
func (m *Mod) VersionMarker() string {
	if len(m.LatestFiles) == 0 {
		return ""
	}
	return strconv.Itoa(m.LatestFiles[len(m.LatestFiles)-1].ID)
}

var releaseTypeNames = map[int]string{
	1: "release",
	2: "beta",
	3: "alpha",
}

func ReleaseTypeName(code int) string {
	if name, ok := releaseTypeNames[code]; ok {
		return name
	}
	return "unknown"
}

// classIDToURLString maps a CurseForge class id to the path segment
// used by project pages on curseforge.com.
var classIDToURLString = map[int]string{
	5:    "bukkit-plugins",
	6:    "mc-mods",
	12:   "texture-packs",
	17:   "worlds",
	4471: "modpacks",
	4546: "customization",
	4559: "mc-addons",
}

func ClassIDToURLString(classID int) string {
	if segment, ok := classIDToURLString[classID]; ok {
		return segment
	}
	return "unknown"
}

type Source struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewSource(baseURL, apiKey string, timeout time.Duration) *Source {
	return &Source{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  zapwriter.Logger(PlatformName),
	}
}

func (s *Source) Name() string {
	return PlatformName
}

func (s *Source) get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	return s.client.Do(req)
}

func (s *Source) FetchProject(projectID string) (platforms.Record, error) {
	id, err := strconv.Atoi(projectID)
	if err != nil {
		return nil, errors.Wrap(err, "curseforge project ids are numeric")
	}

	resp, err := s.get(fmt.Sprintf("%s/v1/mods/%d", s.baseURL, id))
	if err != nil {
		return nil, errors.Wrap(err, "error fetching project")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(fmt.Sprintf("project is not accessible or doesn't exist, http_code: %v", resp.StatusCode))
	}

	var payload struct {
		Data Mod `json:"data"`
	}
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing project payload")
	}

	return &payload.Data, nil
}

// LatestVersion resolves the most recent file of a previously fetched
// mod record and fetches its changelog. Returns nil after logging a
// warning when the changelog request times out or comes back non-200.
func (s *Source) LatestVersion(rec platforms.Record) *platforms.VersionInfo {
	mod, ok := rec.(*Mod)
	if !ok {
		s.logger.Warn("record is not a curseforge mod",
			zap.String("record_title", rec.Title()),
		)
		return nil
	}

	if len(mod.LatestFiles) == 0 {
		s.logger.Warn("no files published",
			zap.String("mod", mod.Name),
		)
		return nil
	}
	file := mod.LatestFiles[len(mod.LatestFiles)-1]

	resp, err := s.get(fmt.Sprintf("%s/v1/mods/%d/files/%d/changelog", s.baseURL, mod.ID, file.ID))
	if err != nil {
		s.logger.Warn("changelog request failed",
			zap.String("mod", mod.Name),
			zap.Int("file_id", file.ID),
			zap.Error(err),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("changelog request returned unexpected status",
			zap.String("mod", mod.Name),
			zap.Int("file_id", file.ID),
			zap.Int("http_code", resp.StatusCode),
		)
		return nil
	}

	var payload struct {
		Data string `json:"data"`
	}
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		s.logger.Warn("error parsing changelog payload",
			zap.String("mod", mod.Name),
			zap.Error(err),
		)
		return nil
	}

	// The web page links files by the id listed in latestFilesIndexes.
	linkedFileID := file.ID
	if len(mod.LatestFilesIndexes) > 0 {
		linkedFileID = mod.LatestFilesIndexes[0].FileID
	}

	return &platforms.VersionInfo{
		Changelog: payload.Data,
		Date:      file.FileDate,
		IconURL:   mod.Logo.URL,
		Name:      file.DisplayName,
		Number:    file.FileName,
		Type:      format.Capitalize(ReleaseTypeName(file.ReleaseType)),
		URL:       fmt.Sprintf("https://www.curseforge.com/minecraft/%s/%s/files/%d", ClassIDToURLString(mod.ClassID), mod.Slug, linkedFileID),
	}
}
