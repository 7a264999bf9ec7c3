package tabular

import (
	"bytes"
	"commute-route-service/internal/domain"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMissingColumns = errors.New("csv: missing origin, waypoint or day column")

// Accepted header names per column, compared trimmed and upper-cased.
var (
	originHeaders   = []string{"CASA", "HOME", "ORIGIN"}
	waypointHeaders = []string{"LAVORO", "WORK", "WAYPOINT"}
	dayHeaders      = []string{"GIORNO", "DAY"}
)

type columns struct {
	origin, waypoint, day int
}

// ParseTrips reads (origin, waypoint, day) rows from CSV. The separator is
// ";" unless the header does not carry the expected columns, in which case
// "," is tried. Cell values are returned as written; blank lines are skipped.
func ParseTrips(r io.Reader) ([]domain.TripRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("parse trips: read input: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var lastErr error
	for _, sep := range []rune{';', ','} {
		rows, err := parseWith(data, sep)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if !errors.Is(err, ErrMissingColumns) {
			return nil, err
		}
	}
	return nil, lastErr
}

func parseWith(data []byte, sep rune) ([]domain.TripRow, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("parse trips: empty input: %w", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("parse trips: read header: %w", err)
	}

	cols, err := locate(header)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.TripRow, 0, 32)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse trips: %w", err)
		}
		if blank(rec) {
			continue
		}

		line, _ := cr.FieldPos(0)
		need := max(cols.origin, cols.waypoint, cols.day)
		if len(rec) <= need {
			return nil, fmt.Errorf("parse trips: line %d: expected at least %d fields, got %d", line, need+1, len(rec))
		}

		rows = append(rows, domain.TripRow{
			DayKey:   rec[cols.day],
			Origin:   rec[cols.origin],
			Waypoint: rec[cols.waypoint],
		})
	}
	return rows, nil
}

func locate(header []string) (columns, error) {
	cols := columns{origin: -1, waypoint: -1, day: -1}
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(h))
		switch {
		case cols.origin < 0 && contains(originHeaders, name):
			cols.origin = i
		case cols.waypoint < 0 && contains(waypointHeaders, name):
			cols.waypoint = i
		case cols.day < 0 && contains(dayHeaders, name):
			cols.day = i
		}
	}

	if cols.origin < 0 || cols.waypoint < 0 || cols.day < 0 {
		return cols, fmt.Errorf("parse trips: header %q: %w", strings.Join(header, "|"), ErrMissingColumns)
	}
	return cols, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
