package datfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/bobmcallan/bolsa/internal/models"
)

const (
	recordPrefix    = "R|"
	indexPrefix     = "IG|"
	minRecordFields = 13
	minIndexFields  = 5
)

// Stats counts what a parse saw.
type Stats struct {
	Records  int
	Skipped  int
	HasIndex bool
}

// HasRecords reports whether a payload contains at least one record line marker.
func HasRecords(payload []byte) bool {
	return bytes.Contains(payload, []byte(recordPrefix))
}

// Parse reads a session file for date. Records are tagged with source; the
// index is tagged automatic. Malformed lines are skipped and counted.
func Parse(r io.Reader, date models.Date, source models.Source) (*models.Day, Stats, error) {
	var stats Stats
	if !date.Valid() {
		return nil, stats, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}

	day := &models.Day{Date: date}
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, recordPrefix):
			rec, ok := parseRecord(line, date, source)
			if !ok {
				stats.Skipped++
				continue
			}
			// a repeated symbol replaces the earlier line
			if i, dup := seen[rec.Symbol]; dup {
				day.Records[i] = rec
				continue
			}
			seen[rec.Symbol] = len(day.Records)
			day.Records = append(day.Records, rec)
		case strings.HasPrefix(line, indexPrefix):
			idx, ok := parseIndex(line, date)
			if !ok {
				stats.Skipped++
				continue
			}
			day.Index = &idx
			stats.HasIndex = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to read session file: %w", err)
	}

	stats.Records = len(day.Records)
	return day, stats, nil
}

// ParseBytes is Parse over an in-memory payload.
func ParseBytes(payload []byte, date models.Date, source models.Source) (*models.Day, Stats, error) {
	return Parse(bytes.NewReader(payload), date, source)
}

func parseRecord(line string, date models.Date, source models.Source) (models.MarketRecord, bool) {
	f := strings.Split(line, "|")
	if len(f) < minRecordFields {
		return models.MarketRecord{}, false
	}
	rec, err := models.NewMarketRecord(
		date,
		f[2],
		f[1],
		ParseNumber(f[3]),
		ParseNumber(f[4]),
		ParseQuantity(f[11]),
		ParseNumber(f[12]),
		source,
	)
	if err != nil {
		return models.MarketRecord{}, false
	}
	return rec, true
}

func parseIndex(line string, date models.Date) (models.IndexRecord, bool) {
	f := strings.Split(line, "|")
	if len(f) < minIndexFields {
		return models.IndexRecord{}, false
	}
	idx, err := models.NewIndexRecord(date, ParseNumber(f[2]), ParseNumber(f[4]), models.SourceAutomatic)
	if err != nil {
		return models.IndexRecord{}, false
	}
	return idx, true
}
