package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-health-advisor/internal/extraction"
)

const timestampLayout = "20060102T150405Z"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Report is one archived upload.
type Report struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ReportStore archives uploaded report files per user, next to a JSON
// sidecar holding their extraction result.
type ReportStore struct {
	basePath string
}

// NewReportStore creates a new ReportStore and ensures the base directory exists.
func NewReportStore(basePath string) (*ReportStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &ReportStore{basePath: basePath}, nil
}

// sanitize makes user ids and file names safe for paths.
func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}

func (s *ReportStore) userDir(userID string) string {
	return filepath.Join(s.basePath, sanitize(userID))
}

// getVersionedPath returns the archive path of an upload. The timestamp
// prefix keeps a user's directory in upload order.
func (s *ReportStore) getVersionedPath(userID, reportID, name string, uploadedAt time.Time) string {
	filename := fmt.Sprintf("%s_%s_%s", uploadedAt.UTC().Format(timestampLayout), reportID, sanitize(name))
	return filepath.Join(s.userDir(userID), filename)
}

func sidecarPath(r Report) string {
	return r.Path + ".json"
}

// Save copies an upload into the archive.
func (s *ReportStore) Save(userID, name string, uploadedAt time.Time, src io.Reader) (Report, error) {
	if err := os.MkdirAll(s.userDir(userID), 0755); err != nil {
		return Report{}, fmt.Errorf("failed to create user directory: %w", err)
	}

	r := Report{
		ID:         uuid.NewString()[:8],
		UserID:     userID,
		Name:       name,
		UploadedAt: uploadedAt.UTC(),
	}
	r.Path = s.getVersionedPath(userID, r.ID, name, uploadedAt)

	f, err := os.Create(r.Path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to create report file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(r.Path)
		return Report{}, fmt.Errorf("failed to write report file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Report{}, fmt.Errorf("failed to close report file: %w", err)
	}
	return r, nil
}

// SaveExtraction stores the extraction result of an archived report.
func (s *ReportStore) SaveExtraction(r Report, res extraction.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	if err := os.WriteFile(sidecarPath(r), data, 0644); err != nil {
		return fmt.Errorf("failed to write extraction file: %w", err)
	}
	return nil
}

// LoadExtraction retrieves the stored extraction result of a report.
func (s *ReportStore) LoadExtraction(r Report) (*extraction.Result, error) {
	data, err := os.ReadFile(sidecarPath(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction file: %w", err)
	}

	var res extraction.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
	}
	return &res, nil
}

// Exists checks whether a report already has a stored extraction.
func (s *ReportStore) Exists(r Report) bool {
	_, err := os.Stat(sidecarPath(r))
	return !os.IsNotExist(err)
}

// List returns a user's archived reports, oldest first.
func (s *ReportStore) List(userID string) ([]Report, error) {
	entries, err := os.ReadDir(s.userDir(userID))
	if os.IsNotExist(err) {
		return []Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := []Report{}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		r, ok := parseReportName(e.Name())
		if !ok {
			continue
		}
		r.UserID = userID
		r.Path = filepath.Join(s.userDir(userID), e.Name())
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Path < reports[j].Path
	})
	return reports, nil
}

func parseReportName(filename string) (Report, bool) {
	parts := strings.SplitN(filename, "_", 3)
	if len(parts) != 3 {
		return Report{}, false
	}
	ts, err := time.Parse(timestampLayout, parts[0])
	if err != nil {
		return Report{}, false
	}
	return Report{ID: parts[1], Name: parts[2], UploadedAt: ts}, true
}

// RemoveStaleVersions keeps the newest keep reports of a user and removes
// the rest together with their sidecars.
func (s *ReportStore) RemoveStaleVersions(userID string, keep int) error {
	reports, err := s.List(userID)
	if err != nil {
		return err
	}
	if len(reports) <= keep {
		return nil
	}

	for _, r := range reports[:len(reports)-keep] {
		if err := os.Remove(r.Path); err != nil {
			return fmt.Errorf("failed to remove stale file %s: %w", r.Path, err)
		}
		if err := os.Remove(sidecarPath(r)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale file %s: %w", sidecarPath(r), err)
		}
	}
	return nil
}
