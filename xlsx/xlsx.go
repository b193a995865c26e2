package xlsx

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"
)

// reportHeader is written as the first row of every report sheet.
var reportHeader = []string{"URL", "Number of comments", "Traffic"}

// Reader reads an input workbook into memory.
type Reader struct {
	path string
}

// NewReader returns a Reader for the workbook at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadData returns every sheet of the workbook as an ordered slice of
// rows, keyed by sheet name. A missing file, an invalid format or any
// other read failure is returned as an error, there is nothing to retry.
func (r *Reader) ReadData() (map[string][][]string, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %q: %w", r.path, err)
	}
	defer f.Close()

	data := map[string][][]string{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		data[sheet] = rows
	}

	return data, nil
}

// Writer builds the report workbook. It is safe for concurrent appends.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *excelize.File

	// sheets tracks the sheets this writer created, the placeholder sheet
	// of a fresh workbook is dropped once the first real sheet exists.
	sheets             map[string]bool
	placeholder        string
	placeholderDropped bool
}

// NewWriter returns a Writer that will save the report at path.
func NewWriter(path string) *Writer {
	f := excelize.NewFile()
	return &Writer{
		path:        path,
		f:           f,
		sheets:      map[string]bool{},
		placeholder: f.GetSheetName(0),
	}
}

// Append adds a report row to the named sheet, creating the sheet with
// the report header when it doesn't exist yet, and saves the workbook so
// a crash mid run loses as little as possible.
func (w *Writer) Append(sheet, url string, comments int, traffic string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := w.ensureSheet(sheet)
	if err != nil {
		return err
	}

	cell := fmt.Sprintf("A%d", next)
	if err := w.f.SetSheetRow(sheet, cell, &[]interface{}{url, comments, traffic}); err != nil {
		return fmt.Errorf("appending row to sheet %q: %w", sheet, err)
	}

	return w.save()
}

// SortByTraffic sorts the data rows of every sheet in place, descending
// by the traffic column, leaving the header row untouched. The workbook
// is only sorted in memory, call Save to persist it.
func (w *Writer) SortByTraffic() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sheet := range w.f.GetSheetList() {
		rows, err := w.f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		if len(rows) < 3 {
			continue
		}

		data := rows[1:]
		sort.SliceStable(data, func(i, j int) bool {
			return cellAt(data[i], 2) > cellAt(data[j], 2)
		})

		for i, row := range data {
			cell := fmt.Sprintf("A%d", i+2)
			if err := w.f.SetSheetRow(sheet, cell, rowValues(row)); err != nil {
				return fmt.Errorf("rewriting sheet %q: %w", sheet, err)
			}
		}
	}

	return nil
}

// Save writes the workbook to its output path.
func (w *Writer) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.save()
}

func (w *Writer) save() error {
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %q: %w", w.path, err)
	}
	return nil
}

// ensureSheet creates the sheet with its header when missing and returns
// the row number the next append should land on.
func (w *Writer) ensureSheet(sheet string) (int, error) {
	if !w.sheets[sheet] {
		if sheet != w.placeholder {
			if _, err := w.f.NewSheet(sheet); err != nil {
				return 0, fmt.Errorf("creating sheet %q: %w", sheet, err)
			}
		}
		// The first report sheet replaces the workbook's placeholder.
		if !w.placeholderDropped && sheet != w.placeholder && !w.sheets[w.placeholder] {
			if err := w.f.DeleteSheet(w.placeholder); err != nil {
				return 0, fmt.Errorf("dropping placeholder sheet %q: %w", w.placeholder, err)
			}
			w.placeholderDropped = true
		}
		if err := w.f.SetSheetRow(sheet, "A1", rowValues(reportHeader)); err != nil {
			return 0, fmt.Errorf("writing header of sheet %q: %w", sheet, err)
		}
		w.sheets[sheet] = true
	}

	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	return len(rows) + 1, nil
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rowValues(row []string) *[]interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return &values
}
