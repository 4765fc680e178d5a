package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// ReadCSV parses a comma-delimited file whose first record is the header.
// Every row must have as many fields as the header.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("parse csv: missing header row")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return &Dataset{Header: header, Rows: records[1:]}, nil
}

// WriteCSV serialises d with a header row and no index column.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(d.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// ReadXLSX loads the first sheet of a workbook. Short rows are padded to the
// header width.
func ReadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("open xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read sheet %q: missing header row", sheets[0])
	}

	header := rows[0]
	d := &Dataset{Header: header, Rows: make([][]string, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf("read sheet %q: row %d has %d cells, header has %d", sheets[0], i+2, len(row), len(header))
		}
		padded := make([]string, len(header))
		copy(padded, row)
		d.Rows = append(d.Rows, padded)
	}
	return d, nil
}

// Load reads path from fs, choosing the parser by extension.
func Load(fs afero.Fs, path string) (*Dataset, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(bytes.NewReader(data))
	default:
		return ReadCSV(bytes.NewReader(data))
	}
}

// WriteFile writes d to path as CSV. The data goes to a temporary file in the
// same directory which is renamed over path only after a complete write, so a
// failed write never leaves a partial output behind.
func WriteFile(fs afero.Fs, path string, d *Dataset) (err error) {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = fs.Remove(tmpName)
		}
	}()

	if err = WriteCSV(tmp, d); err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
