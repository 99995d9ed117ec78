package dataimporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

func rawFileName(kind string, now time.Time) string {
	return kind + "_" + strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05.000Z"), ":", "-") + ".json"
}

// saveRaw keeps the untouched upstream payload for auditing. Failing to write it never fails
// the import.
func (i *Importer) saveRaw(kind string, raw []byte) {
	if i.RawDataDir == "" || len(raw) == 0 {
		return
	}

	if err := os.MkdirAll(i.RawDataDir, 0o755); err != nil {
		log.Error().Err(err).Str("directory", i.RawDataDir).Msg("Failed to create raw data directory")
		return
	}

	var formatted bytes.Buffer
	if err := json.Indent(&formatted, raw, "", "  "); err != nil {
		formatted.Reset()
		formatted.Write(raw)
	}

	path := filepath.Join(i.RawDataDir, rawFileName(kind, i.now()))
	if err := os.WriteFile(path, formatted.Bytes(), 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to save raw upstream data")
	}
}

// pruneOlderThan removes entries last modified before the cutoff. With a nil filter only regular
// files are considered, otherwise every entry whose name passes the filter is removed recursively.
func pruneOlderThan(directory string, cutoff time.Time, filter func(name string) bool) (int, error) {
	if directory == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(directory)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if filter == nil && !entry.Type().IsRegular() {
			continue
		}
		if filter != nil && !filter(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(directory, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, err
		}

		log.Debug().Str("path", path).Msg("Deleted old file")
		removed++
	}

	return removed, nil
}
