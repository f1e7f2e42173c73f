package persist

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// writeCsv atomically replaces the file at path with a CSV document
// containing the header followed by the given rows. The write goes through
// a temp file so a crash mid-write cannot truncate an earlier backup.
func writeCsv(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(temp.Name())

	writer := csv.NewWriter(temp)
	if err := writer.Write(header); err != nil {
		temp.Close()
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		temp.Close()
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}

	return os.Rename(temp.Name(), path)
}

// ProgressMarker is the durable checkpoint a long crawl writes periodically;
// a crashed run can be manually resumed from the counts it records.
type ProgressMarker struct {
	SessionID        uuid.UUID `json:"session_id"`
	Timestamp        time.Time `json:"timestamp"`
	CompletedShows   int       `json:"completed_shows"`
	TotalDiscussions int       `json:"total_discussions"`
	RequestCount     int       `json:"request_count"`
}

// WriteProgress persists the marker as indented JSON at the given path.
func WriteProgress(path string, marker ProgressMarker) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}

	payload, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, payload, 0o644)
}
