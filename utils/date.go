package utils

import (
	"fmt"
	"strings"
	"time"
)

// ExportTimeLayout is the wall-clock layout used in export documents.
const ExportTimeLayout = "01/02/2006 15:04:05"

// FileTimestampLayout is the timestamp layout embedded in export file names.
const FileTimestampLayout = "20060102150405"

func ParseISOTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, fmt.Errorf("empty time string")
	}

	// Try standard RFC3339 format (ISO 8601)
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return &t, nil
	}

	// Try with nanoseconds (e.g. 2025-10-13T09:30:00.123Z)
	t, err = time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return &t, nil
	}

	// Try fallback common formats
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999999",
		"1/2/2006 15:04:05",
		"1/2/2006 3:04:05 PM",
		"01/02/2006 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if tt, e := time.ParseInLocation(layout, s, time.UTC); e == nil {
			return &tt, nil
		}
	}

	return nil, fmt.Errorf("failed to parse time: %v", s)
}

// ParseOptionalTime treats blank input as a missing value. Parsed times are
// normalized to UTC.
func ParseOptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := ParseISOTime(s)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}

func FormatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(ExportTimeLayout)
}
