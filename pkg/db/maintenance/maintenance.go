package maintenance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"adsbglobe/pkg/db"
	"adsbglobe/pkg/store"
	"adsbglobe/pkg/telemetry"
)

const importStateKey = "planes_import_mtime"

// Options controls a maintenance run.
type Options struct {
	// ImportPath is a tab separated dump with a header row:
	// icao, lat, lon, t, r, track_degrees, time.
	ImportPath string
	// Retain keeps archived rows this close to the newest one. Zero keeps everything.
	Retain time.Duration
}

// Run executes all maintenance tasks: Import and Pruning.
// It blocks until completion. Failures are logged, not returned, so a bad
// dump never prevents startup.
func Run(ctx context.Context, s store.Store, d *db.DB, opts Options) error {
	slog.Info("Starting database maintenance...")

	if err := importDump(ctx, s, opts.ImportPath); err != nil {
		slog.Error("Telemetry import failed", "error", err)
	} else {
		slog.Info("Telemetry import check completed")
	}

	if err := pruneRecords(ctx, s, d, opts.Retain); err != nil {
		slog.Error("Record pruning failed", "error", err)
	}

	return nil
}

// importDump loads a telemetry dump into the replay archive, conditional on
// its modification time.
func importDump(ctx context.Context, s store.Store, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat dump: %w", err)
	}

	fileMTime := info.ModTime().UTC().Format(time.RFC3339)
	if stored, found := s.GetState(ctx, importStateKey); found && stored == fileMTime {
		return nil
	}

	slog.Info("Importing telemetry dump...", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	idxMap := make(map[string]int)
	for i, h := range headers {
		idxMap[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"icao", "lat", "lon", "t", "r", "track_degrees", "time"} {
		if _, ok := idxMap[col]; !ok {
			return fmt.Errorf("dump header is missing column %q", col)
		}
	}

	count, skipped, err := processRows(ctx, s, reader, idxMap)
	if err != nil {
		return err
	}
	slog.Info("Imported telemetry dump", "rows", count, "skipped", skipped)

	if err := s.SetState(ctx, importStateKey, fileMTime); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}

func processRows(ctx context.Context, s store.Store, reader *csv.Reader, idxMap map[string]int) (count, skipped int, err error) {
	get := func(row []string, col string) string {
		if i, ok := idxMap[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return count, skipped, fmt.Errorf("dump read error: %w", err)
		}

		fields := []string{
			get(row, "icao"), get(row, "lat"), get(row, "lon"),
			get(row, "t"), get(row, "r"), get(row, "track_degrees"),
		}
		rec, err := telemetry.ParseRow(fields, line)
		if err != nil {
			slog.Warn("Skipping dump row", "error", err)
			skipped++
			continue
		}
		at, err := parseTime(get(row, "time"))
		if err != nil {
			slog.Warn("Skipping dump row", "line", line, "error", err)
			skipped++
			continue
		}

		if err := s.SaveRecordAt(ctx, &rec, at); err != nil {
			return count, skipped, fmt.Errorf("failed to save row %d: %w", line, err)
		}
		count++
	}
	return count, skipped, nil
}

// parseTime accepts the window layout, ClickHouse's DateTime text form and RFC3339.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{telemetry.TimeLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// pruneRecords drops archived rows older than retain before the newest one.
func pruneRecords(ctx context.Context, s store.Store, d *db.DB, retain time.Duration) error {
	if retain <= 0 {
		return nil
	}
	_, last, ok, err := s.TimeRange(ctx)
	if err != nil || !ok {
		return err
	}
	n, err := d.PruneRecords(last.Add(-retain))
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Pruned archived telemetry", "rows", n)
	}
	return nil
}
