package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"adsbglobe/pkg/geo"
)

// ParseRow converts the fields of one row into a Record.
// line is only used for error reporting.
func ParseRow(fields []string, line int) (Record, error) {
	if len(fields) != FieldCount {
		return Record{}, &MalformedRecordError{Line: line, Err: fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), FieldCount)}
	}

	id := strings.TrimSpace(fields[0])
	if id == "" {
		return Record{}, &MalformedRecordError{Line: line, Field: "icao", Err: ErrEmptyID}
	}

	lat, err := parseFloat(fields[1], 64)
	if err != nil {
		return Record{}, &MalformedRecordError{Line: line, Field: "lat", Err: err}
	}
	lon, err := parseFloat(fields[2], 64)
	if err != nil {
		return Record{}, &MalformedRecordError{Line: line, Field: "lon", Err: err}
	}
	track, err := parseFloat(fields[5], 32)
	if err != nil {
		return Record{}, &MalformedRecordError{Line: line, Field: "track_degrees", Err: err}
	}

	return Record{
		ID:           id,
		Coordinate:   geo.Coordinate{Latitude: lat, Longitude: lon},
		Heading:      float32(track),
		AircraftType: fields[3],
		Registration: fields[4],
	}, nil
}

func parseFloat(s string, bits int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// MaxRowBytes bounds a single TSV row. A well formed row is well under 100
// bytes; anything past this is discarded and counted as malformed.
const MaxRowBytes = 64 * 1024

// ParseTSV reads tab separated rows into a snapshot. Malformed rows are
// logged and skipped; the returned count tells how many were dropped.
// Only a read error from r fails the whole call.
func ParseTSV(r io.Reader, logger *slog.Logger) (Snapshot, int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snap := make(Snapshot)
	malformed := 0
	line := 0

	br := bufio.NewReaderSize(r, MaxRowBytes)
	for {
		raw, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed, fmt.Errorf("failed to read rows: %w", err)
		}
		line++

		if isPrefix {
			if err := skipLine(br); err != nil {
				return nil, malformed, fmt.Errorf("failed to read rows: %w", err)
			}
			malformed++
			logger.Warn("Dropping malformed telemetry row", "error", &MalformedRecordError{Line: line, Err: ErrRowTooLong})
			continue
		}
		if len(raw) == 0 {
			continue
		}

		fields := strings.Split(string(raw), "\t")
		for i := range fields {
			fields[i] = unescapeTSV(fields[i])
		}

		rec, err := ParseRow(fields, line)
		if err != nil {
			malformed++
			logger.Warn("Dropping malformed telemetry row", "error", err)
			continue
		}
		snap.Add(rec)
	}

	return snap, malformed, nil
}

// skipLine discards the remainder of an over-long line. EOF ends the line.
func skipLine(br *bufio.Reader) error {
	for {
		_, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isPrefix {
			return nil
		}
	}
}

var tsvUnescaper = strings.NewReplacer(`\t`, "\t", `\n`, "\n", `\\`, `\`, `\'`, "'")

// unescapeTSV undoes the escaping ClickHouse applies to TabSeparated strings.
func unescapeTSV(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return tsvUnescaper.Replace(s)
}
