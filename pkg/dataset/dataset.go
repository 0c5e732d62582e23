package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"time"
)

// TimestampLayout is the timestamp format used in the generated file.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultRows is the number of records generated when no count is given.
const DefaultRows = 10000

// ErrInvalidRowCount is returned when a negative row count is requested.
var ErrInvalidRowCount = errors.New("row count must not be negative")

// Header is the column header of the generated file.
var Header = []string{"timestamp", "user_id", "ip_address", "url", "status_code", "response_time_ms"}

// URLs is the fixed set of request paths.
var URLs = []string{"/home", "/products", "/about", "/contact", "/api/data"}

// statusCodes is weighted 3:1:1 towards 200.
var statusCodes = []int16{200, 200, 200, 404, 500}

// Epoch is the earliest possible record timestamp.
var Epoch = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	maxDayOffset    = 364
	maxHourOffset   = 23
	minUserID       = 1
	maxUserID       = 1000
	minResponseTime = 50
	maxResponseTime = 1000
)

// Record is one synthetic web log entry.
type Record struct {
	Timestamp      time.Time
	UserID         int32
	IPAddress      string
	URL            string
	StatusCode     int16
	ResponseTimeMs int32
}

// Fields returns the record in column order, formatted for CSV.
func (r Record) Fields() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		strconv.FormatInt(int64(r.UserID), 10),
		r.IPAddress,
		r.URL,
		strconv.FormatInt(int64(r.StatusCode), 10),
		strconv.FormatInt(int64(r.ResponseTimeMs), 10),
	}
}

// Generator produces independently randomized log records.
type Generator struct {
	Rand *rand.Rand
}

// NewGenerator returns a generator. A nil seed draws a fresh random seed,
// so output differs between runs; a fixed seed makes output reproducible.
func NewGenerator(seed *int64) *Generator {
	var src rand.Source

	if seed != nil {
		s := uint64(*seed)
		src = rand.NewPCG(s, s^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Generator{Rand: rand.New(src)}
}

// Record draws one record.
func (g *Generator) Record() Record {
	days := g.Rand.IntN(maxDayOffset + 1)
	hours := g.Rand.IntN(maxHourOffset + 1)

	return Record{
		Timestamp:      Epoch.AddDate(0, 0, days).Add(time.Duration(hours) * time.Hour),
		UserID:         int32(minUserID + g.Rand.IntN(maxUserID-minUserID+1)),
		IPAddress:      fmt.Sprintf("192.168.%d.%d", g.Rand.IntN(256), g.Rand.IntN(256)),
		URL:            URLs[g.Rand.IntN(len(URLs))],
		StatusCode:     statusCodes[g.Rand.IntN(len(statusCodes))],
		ResponseTimeMs: int32(minResponseTime + g.Rand.IntN(maxResponseTime-minResponseTime+1)),
	}
}

// Write writes the header followed by n records.
func (g *Generator) Write(w io.Writer, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRowCount, n)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := 0; i < n; i++ {
		if err := cw.Write(g.Record().Fields()); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing records: %w", err)
	}

	return nil
}

// WriteFile creates path and writes n records to it.
func (g *Generator) WriteFile(path string, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRowCount, n)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)

	if err := g.Write(bw, n); err != nil {
		_ = f.Close()

		return err
	}

	if err := bw.Flush(); err != nil {
		_ = f.Close()

		return fmt.Errorf("flushing %s: %w", path, err)
	}

	return f.Close()
}
