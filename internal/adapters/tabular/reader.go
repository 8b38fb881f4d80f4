package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ratings_dashboard/internal/domain"
)

// Reader loads CSV and XLSX review exports into domain.Table.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

func (r *Reader) ReadTable(ctx context.Context, path string) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return domain.Table{}, fmt.Errorf("unsupported file type %q", ext)
	}
}

func readCSV(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, fmt.Errorf("%s: no header row", path)
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("read header %s: %w", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	t := domain.Table{Path: path, Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("read %s: %w", path, err)
		}
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, pad(rec, len(header)))
	}
	return t, nil
}

// readXLSX reads the first sheet; its first row is the header.
func readXLSX(path string) (domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Table{}, fmt.Errorf("read sheet %s of %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return domain.Table{}, fmt.Errorf("%s: no header row", path)
	}

	t := domain.Table{Path: path, Header: rows[0]}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, pad(row, len(t.Header)))
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// pad returns row extended with empty cells up to n, or trimmed to n.
func pad(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
