// Package inspect proposes a table definition from a sample data file. It
// reads a delimited file (plain or gzip-compressed), sniffs a SQL type per
// column from the sampled rows, and returns the same table structure the
// compiler consumes.
package inspect

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pgdomain/pgdomain/internal/spec"
)

// DefaultSampleRows bounds how much of the file type sniffing reads.
const DefaultSampleRows = 1000

// Result is a proposed table plus the raw header names it was derived from,
// index-aligned with the table columns.
type Result struct {
	Table   *spec.Table
	Headers []string
}

// File sniffs a sample file into a table definition named after the file.
// sampleRows <= 0 samples DefaultSampleRows rows.
func File(path string, sampleRows int) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	name := filepath.Base(path)
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip sample file: %w", err)
		}
		defer gz.Close()
		reader = gz
		name = strings.TrimSuffix(name, ".gz")
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))

	table, headers, err := Read(reader, sampleRows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Name = SanitizeName(name)
	return &Result{Table: table, Headers: headers}, nil
}

// Read sniffs CSV content from a reader. The first record is the header.
func Read(r io.Reader, sampleRows int) (*spec.Table, []string, error) {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	cr := csv.NewReader(r)
	headers, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	guesses := make([]typeGuess, len(headers))
	for row := 0; row < sampleRows; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", row+2, err)
		}
		for i := range headers {
			if i < len(record) {
				guesses[i].observe(record[i])
			}
		}
	}

	table := &spec.Table{}
	for i, h := range headers {
		table.Columns = append(table.Columns, spec.Column{
			Name: SanitizeName(h),
			Type: guesses[i].sqlType(),
		})
	}
	return table, headers, nil
}

// ParseOverride parses a forced column definition of the form "name:TYPE",
// appended to a sniffed table for columns the sample cannot reveal.
func ParseOverride(raw string) (spec.Column, error) {
	name, sqlType, ok := strings.Cut(raw, ":")
	if !ok || name == "" || sqlType == "" {
		return spec.Column{}, fmt.Errorf("%w: column override %q is not name:TYPE", spec.ErrInvalidSpec, raw)
	}
	return spec.Column{Name: SanitizeName(name), Type: sqlType}, nil
}

// SanitizeName lowercases a header and replaces everything that cannot
// appear in an unquoted SQL identifier.
func SanitizeName(header string) string {
	var b strings.Builder
	for i, r := range strings.ToLower(strings.TrimSpace(header)) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('c')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// typeGuess tracks the narrowest SQL type consistent with every observed
// value of one column.
type typeGuess struct {
	seen      bool
	isInt     bool
	isBig     bool
	isNumeric bool
	isBool    bool
	isDate    bool
	isStamp   bool
}

var dateFormats = []string{"2006-01-02", "01/02/2006"}

var timestampFormats = []string{time.RFC3339, "2006-01-02 15:04:05"}

func (g *typeGuess) observe(value string) {
	v := strings.TrimSpace(value)
	if v == "" {
		// Empty cells carry no type information.
		return
	}
	if !g.seen {
		g.seen = true
		g.isInt, g.isBig = true, true
		g.isNumeric, g.isBool = true, true
		g.isDate, g.isStamp = true, true
	}
	if g.isInt || g.isBig {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			g.isInt, g.isBig = false, false
		} else if n > math.MaxInt32 || n < math.MinInt32 {
			g.isInt = false
		}
	}
	if g.isNumeric {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			g.isNumeric = false
		}
	}
	if g.isBool {
		switch strings.ToLower(v) {
		case "true", "false", "t", "f", "0", "1":
		default:
			g.isBool = false
		}
	}
	if g.isDate {
		g.isDate = parsesAs(v, dateFormats)
	}
	if g.isStamp {
		g.isStamp = parsesAs(v, timestampFormats)
	}
}

func (g *typeGuess) sqlType() string {
	switch {
	case !g.seen:
		return "VARCHAR"
	case g.isBool && !g.isInt:
		return "BOOLEAN"
	case g.isInt:
		return "INT"
	case g.isBig:
		return "BIGINT"
	case g.isNumeric:
		return "NUMERIC"
	case g.isDate:
		return "DATE"
	case g.isStamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func parsesAs(value string, formats []string) bool {
	for _, f := range formats {
		if _, err := time.Parse(f, value); err == nil {
			return true
		}
	}
	return false
}
