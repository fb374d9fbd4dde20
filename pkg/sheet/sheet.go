// Package sheet reads the first sheet of an uploaded spreadsheet into rows
// keyed by header text.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/pkg/calendar"
)

var ErrEmptySheet = errors.New("spreadsheet has no header row")

// Row is one spreadsheet row keyed by its header text.
type Row map[string]string

// Fold lowercases s, strips accents and drops everything that is not a
// letter or digit, so "No. De Empleado" and "no_de_empleado" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Get returns the value of the first header that folds to one of names.
func (r Row) Get(names ...string) string {
	for _, name := range names {
		want := Fold(name)
		for h, v := range r {
			if Fold(h) == want && v != "" {
				return v
			}
		}
	}
	return ""
}

// ReadRows reads the first sheet of an .xlsx workbook, or a .csv file, into
// rows keyed by the header row. Blank rows are skipped.
func ReadRows(r io.Reader, filename string) ([]Row, error) {
	var table [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
		cr.FieldsPerRecord = -1
		table, err = cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
	default:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySheet
		}
		table, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
	}
	return tableToRows(table)
}

func tableToRows(table [][]string) ([]Row, error) {
	if len(table) == 0 {
		return nil, ErrEmptySheet
	}
	headers := table[0]
	rows := make([]Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		row := Row{}
		blank := true
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(cells) {
				continue
			}
			v := strings.TrimSpace(cells[i])
			if v != "" {
				blank = false
			}
			row[h] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

var dateLayouts = []string{"1/2/2006", "01-02-06", "2/1/06", "02-01-2006"}

// ParseDate accepts what calendar.Parse does plus Excel serial day numbers
// and the short formats spreadsheets emit. Unparseable values yield the zero
// date.
func ParseDate(v string) calendar.Date {
	if d, err := calendar.Parse(v); err == nil {
		return d
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return calendar.FromTime(t)
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return calendar.FromTime(t)
		}
	}
	return calendar.Date{}
}
