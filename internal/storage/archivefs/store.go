// Package archivefs implements the local archive of daily session (.dat) files.
package archivefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/datfile"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

const fileExt = ".dat"

var datePattern = regexp.MustCompile(`(\d{8})`)

// Store reads and writes <dir>/<YYYYMMDD>.dat files.
type Store struct {
	dir    string
	logger *common.Logger
}

// NewStore creates the archive directory if needed.
func NewStore(logger *common.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir %s: %w", dir, err)
	}
	logger.Debug().Str("dir", dir).Msg("Archive store opened")
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string {
	return s.dir
}

// FetchDay parses the archived file for date. A missing file is an empty day.
func (s *Store) FetchDay(_ context.Context, date models.Date) (*models.Day, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}

	path, err := s.locate(date)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return &models.Day{Date: date}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer f.Close()

	day, stats, err := datfile.Parse(f, date, models.SourceArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", path, err)
	}

	s.logger.Debug().
		Str("date", date.String()).
		Str("file", filepath.Base(path)).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Msg("Archive file parsed")

	return day, nil
}

// locate prefers the exact file name, then any .dat whose name contains the date.
func (s *Store) locate(date models.Date) (string, error) {
	exact := filepath.Join(s.dir, string(date)+fileExt)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list archive dir: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), fileExt) {
			continue
		}
		if strings.Contains(name, string(date)) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Strings(candidates)
	return filepath.Join(s.dir, candidates[0]), nil
}

// ListDates returns every date with an archived file, ascending and de-duplicated.
func (s *Store) ListDates() ([]models.Date, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list archive dir: %w", err)
	}

	seen := make(map[models.Date]bool)
	var dates []models.Date
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), fileExt) {
			continue
		}
		m := datePattern.FindString(name)
		if m == "" {
			continue
		}
		d := models.Date(m)
		if !d.Valid() || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

// SaveRaw writes a payload to <date>.dat atomically.
func (s *Store) SaveRaw(date models.Date, payload []byte) error {
	if !date.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	target := filepath.Join(s.dir, string(date)+fileExt)

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(payload); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug().Str("date", date.String()).Int("bytes", len(payload)).Msg("Archive file written")
	return nil
}

// Ensure Store implements ArchiveStore
var _ interfaces.ArchiveStore = (*Store)(nil)
