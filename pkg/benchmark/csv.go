package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVHeader is the column header of the results file.
var CSVHeader = []string{"query", "clickhouse_time", "mysql_time", "speedup", "rows_returned"}

// WriteCSV writes the successful results. Failed queries are omitted.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range results {
		if !r.OK() {
			continue
		}

		if err := cw.Write([]string{
			r.Query,
			formatFloat(r.ClickHouseTime),
			formatFloat(r.MySQLTime),
			formatFloat(r.Speedup),
			strconv.Itoa(r.RowsReturned),
		}); err != nil {
			return fmt.Errorf("writing result %s: %w", r.Query, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSVFile writes results to path.
func WriteCSVFile(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := WriteCSV(f, results); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// ReadCSV parses a results file written by WriteCSV.
func ReadCSV(r io.Reader) ([]Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty results file")
		}

		return nil, fmt.Errorf("reading header: %w", err)
	}

	if strings.Join(header, ",") != strings.Join(CSVHeader, ",") {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	var results []Result

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return results, nil
		}

		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		res, err := parseResult(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		results = append(results, res)
	}
}

func parseResult(rec []string) (Result, error) {
	var (
		res = Result{Query: rec[0]}
		err error
	)

	if res.ClickHouseTime, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return res, fmt.Errorf("parsing clickhouse_time: %w", err)
	}

	if res.MySQLTime, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return res, fmt.Errorf("parsing mysql_time: %w", err)
	}

	if res.Speedup, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return res, fmt.Errorf("parsing speedup: %w", err)
	}

	// Older result files may carry the count as a float ("1.0").
	rows, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return res, fmt.Errorf("parsing rows_returned: %w", err)
	}

	res.RowsReturned = int(rows)

	return res, nil
}

// ReadCSVFile reads a results file. A missing file returns an error
// matching os.ErrNotExist.
func ReadCSVFile(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}
