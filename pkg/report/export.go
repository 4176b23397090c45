package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatRaw  Format = "raw"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON, FormatRaw:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (available: csv, json, raw)", ErrUnsupportedFormat, s)
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	if f == FormatRaw {
		return "json"
	}
	return string(f)
}

// ExportSummary describes a finished export.
type ExportSummary struct {
	Resource  string
	Records   int
	Columns   int
	Total     int
	Truncated bool
}

// Export drains a resource and writes it to w. csv and json write flattened
// rows over the union of all fields; raw writes the records as received.
// Values are never truncated.
func (rp *Reporter) Export(ctx context.Context, resource string, filters Filters, format Format, w io.Writer) (*ExportSummary, error) {
	res, err := Lookup(resource)
	if err != nil {
		return nil, err
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	ref, err := res.ref(filters)
	if err != nil {
		return nil, err
	}

	result, err := rp.drain.Drain(ctx, ref, 0)
	if err != nil {
		return nil, err
	}

	summary := &ExportSummary{
		Resource:  res.Name,
		Records:   len(result.Records),
		Total:     result.Size(),
		Truncated: result.Truncated,
	}

	switch format {
	case FormatCSV:
		summary.Columns, err = writeCSV(w, result.Records)
	case FormatJSON:
		summary.Columns, err = writeJSON(w, result.Records)
	case FormatRaw:
		err = writeRaw(w, result.Records)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s export: %w", format, err)
	}

	rp.logger.Info().
		Str("resource", res.Name).
		Str("format", string(format)).
		Int("records", summary.Records).
		Bool("truncated", summary.Truncated).
		Msg("Export complete")

	return summary, nil
}

func writeCSV(w io.Writer, recs []*record.Record) (int, error) {
	columns, rows := flatten.Batch(recs, nil)
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, err
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(columns), cw.Error()
}

func writeJSON(w io.Writer, recs []*record.Record) (int, error) {
	columns, rows := flatten.Batch(recs, nil)
	data, err := gojson.MarshalIndent(rows, "", "  ")
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return 0, err
	}
	return len(columns), nil
}

func writeRaw(w io.Writer, recs []*record.Record) error {
	if recs == nil {
		recs = []*record.Record{}
	}
	data, err := gojson.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
