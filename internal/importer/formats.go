package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"Strata/internal/export"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// ReadWorkbook reads the Samples sheet, or the first sheet when there is none.
func ReadWorkbook(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if idx, err := f.GetSheetIndex(export.SamplesSheet); err == nil && idx >= 0 {
		sheet = export.SamplesSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return Result{}, errors.New("empty sheet")
	}
	t, err := newTable(rows[0])
	if err != nil {
		return Result{}, err
	}
	for i := 1; i < len(rows); i++ {
		t.add(i+1, rows[i])
	}
	return t.result(), nil
}

type CSVOptions struct {
	// Charset names the file encoding, e.g. "windows-1252" or "iso-8859-1".
	// Empty means UTF-8 when the bytes are valid UTF-8 and Windows-1252 otherwise.
	Charset string
	Comma   rune
}

// ReadCSV reads a header row plus one sample per line.
func ReadCSV(r io.Reader, opts CSVOptions) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	enc, err := pickEncoding(opts.Charset, raw)
	if err != nil {
		return Result{}, err
	}
	text := raw
	if enc != nil {
		if text, err = enc.NewDecoder().Bytes(raw); err != nil {
			return Result{}, fmt.Errorf("decode %s: %w", opts.Charset, err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	t, err := newTable(header)
	if err != nil {
		return Result{}, err
	}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			t.res.Skipped = append(t.res.Skipped, RowError{Row: line, Reason: err.Error()})
			continue
		}
		t.add(line, row)
	}
	return t.result(), nil
}

// pickEncoding returns nil for UTF-8 input.
func pickEncoding(name string, raw []byte) (encoding.Encoding, error) {
	if name == "" {
		if utf8.Valid(raw) {
			return nil, nil
		}
		return charmap.Windows1252, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if n, _ := htmlindex.Name(enc); n == "utf-8" {
		return nil, nil
	}
	return enc, nil
}
