package gtfs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

const exportPrefix = "gtfs_"

// Export is the result of writing a feed to disk
type Export struct {
	Directory string
	Archive   string
	Files     []string
}

// ExportName returns the directory name used for an export taken at the given time
func ExportName(now time.Time) string {
	return exportPrefix + strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05.000Z"), ":", "-")
}

// WriteFeed writes every table of the feed as CSV into a new timestamped directory under baseDir
// and packs the directory into a zip archive next to it
func WriteFeed(baseDir string, feed *Feed, now time.Time) (*Export, error) {
	directory := filepath.Join(baseDir, ExportName(now))
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, err
	}

	tables := []struct {
		name string
		rows interface{}
	}{
		{"agency.txt", feed.Agencies},
		{"stops.txt", feed.Stops},
		{"routes.txt", feed.Routes},
		{"trips.txt", feed.Trips},
		{"stop_times.txt", feed.StopTimes},
		{"calendar.txt", feed.Calendars},
	}

	export := &Export{
		Directory: directory,
		Archive:   directory + ".zip",
	}

	for _, table := range tables {
		path := filepath.Join(directory, table.name)
		if err := writeTable(path, table.rows); err != nil {
			return nil, fmt.Errorf("writing %s: %w", table.name, err)
		}
		export.Files = append(export.Files, path)
	}

	if err := writeArchive(export.Archive, export.Files); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}

	log.Info().
		Str("directory", directory).
		Int("stops", len(feed.Stops)).
		Int("routes", len(feed.Routes)).
		Int("trips", len(feed.Trips)).
		Msg("Written GTFS export")

	return export, nil
}

func writeTable(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.MarshalFile(rows, file)
}

func writeArchive(path string, files []string) error {
	archive, err := os.Create(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	writer := zip.NewWriter(archive)

	for _, file := range files {
		if err := addToArchive(writer, file); err != nil {
			writer.Close()
			return err
		}
	}

	return writer.Close()
}

func addToArchive(writer *zip.Writer, path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	entry, err := writer.Create(filepath.Base(path))
	if err != nil {
		return err
	}

	_, err = io.Copy(entry, source)
	return err
}

// IsExport reports whether a directory entry name was produced by WriteFeed
func IsExport(name string) bool {
	return strings.HasPrefix(name, exportPrefix)
}
