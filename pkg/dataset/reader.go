package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader streams records back from a generated file.
type Reader struct {
	csv  *csv.Reader
	line int
}

// NewReader reads and validates the header row.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if strings.Join(header, ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	return &Reader{csv: cr, line: 1}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	fields, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}

		return Record{}, fmt.Errorf("reading line %d: %w", r.line+1, err)
	}

	r.line++

	rec, err := ParseRecord(fields)
	if err != nil {
		return Record{}, fmt.Errorf("line %d: %w", r.line, err)
	}

	return rec, nil
}

// ParseRecord parses one CSV row in header order.
func ParseRecord(fields []string) (Record, error) {
	if len(fields) != len(Header) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(fields))
	}

	ts, err := time.ParseInLocation(TimestampLayout, fields[0], time.UTC)
	if err != nil {
		return Record{}, fmt.Errorf("parsing timestamp: %w", err)
	}

	userID, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("parsing user_id: %w", err)
	}

	status, err := strconv.ParseInt(fields[4], 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("parsing status_code: %w", err)
	}

	rt, err := strconv.ParseInt(fields[5], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("parsing response_time_ms: %w", err)
	}

	return Record{
		Timestamp:      ts,
		UserID:         int32(userID),
		IPAddress:      fields[2],
		URL:            fields[3],
		StatusCode:     int16(status),
		ResponseTimeMs: int32(rt),
	}, nil
}

// CountRecords returns the number of data rows in r, excluding the header.
func CountRecords(r io.Reader) (int, error) {
	dr, err := NewReader(r)
	if err != nil {
		return 0, err
	}

	n := 0

	for {
		if _, err := dr.Next(); err != nil {
			if err == io.EOF {
				return n, nil
			}

			return n, err
		}

		n++
	}
}
