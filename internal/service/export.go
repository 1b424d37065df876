package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// utf8BOM lets spreadsheet tools detect the encoding of exported files.
const utf8BOM = "\xEF\xBB\xBF"

// ExportService writes ledger tables as UTF-8 CSV with a byte-order mark.
type ExportService struct {
	store *repository.Store
}

// NewExportService creates a new ExportService instance.
func NewExportService(store *repository.Store) *ExportService {
	return &ExportService{store: store}
}

// Tables returns the names accepted by WriteTable.
func (s *ExportService) Tables() []string {
	return repository.TableNames()
}

// WriteTable dumps a whole table verbatim: header of column names, one row per record.
// Unknown tables return ErrNotFound.
func (s *ExportService) WriteTable(ctx context.Context, w io.Writer, table string) error {
	data, err := s.store.Reports.Rows(ctx, table, 0)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownTable) {
			return ErrNotFound
		}
		return storage(err)
	}
	return writeCSV(w, data.Columns, data.Rows)
}

// Recent returns the newest rows of a table for display.
func (s *ExportService) Recent(ctx context.Context, table string, limit int) (*repository.Table, error) {
	data, err := s.store.Reports.Rows(ctx, table, limit)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownTable) {
			return nil, ErrNotFound
		}
		return nil, storage(err)
	}
	return data, nil
}

// WriteAttendance dumps every attendance mark with the member's name, newest first.
func (s *ExportService) WriteAttendance(ctx context.Context, w io.Writer) error {
	entries, err := s.store.Attendance.Recent(ctx, 0)
	if err != nil {
		return storage(err)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Username, e.Timestamp.UTC().Format("2006-01-02 15:04:05")})
	}
	return writeCSV(w, []string{"username", "timestamp"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
