package notify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// SheetLog appends one row per issued quote to an xlsx workbook. The
// header row is written once, when the tab is still empty.
type SheetLog struct {
	Path string
	Tab  string

	mu sync.Mutex
}

// Append writes the row to the next free line of the configured tab,
// creating the workbook and the header row as needed. Safe for
// concurrent use within one process; the workbook is rewritten on every
// call.
func (s *SheetLog) Append(headers []string, row []any) error {
	if s.Path == "" {
		return errors.New("sheet log path is empty")
	}
	tab := s.Tab
	if tab == "" {
		tab = "Quotes"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(tab)
	if err != nil {
		return fmt.Errorf("sheet index: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(tab); err != nil {
			return fmt.Errorf("create sheet %s: %w", tab, err)
		}
		if created && tab != "Sheet1" {
			_ = f.DeleteSheet("Sheet1")
		}
	}

	rows, err := f.GetRows(tab)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", tab, err)
	}
	next := len(rows) + 1
	if len(rows) == 0 {
		head := make([]any, len(headers))
		for i, h := range headers {
			head[i] = h
		}
		if err := f.SetSheetRow(tab, "A1", &head); err != nil {
			return fmt.Errorf("write header row: %w", err)
		}
		next = 2
	}
	if err := f.SetSheetRow(tab, fmt.Sprintf("A%d", next), &row); err != nil {
		return fmt.Errorf("write quote row: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("save quote log: %w", err)
	}
	return nil
}

func (s *SheetLog) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.Path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("open quote log: %w", err)
}
