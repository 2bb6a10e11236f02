// Package sheet is the tabular store: it reads the raw chat/message
// tables and writes the report sheets of a workbook. Writes are
// idempotent overwrites per sheet, except the history sheet which is
// append-only.
package sheet

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"chat-insights-go/internal/logger"
)

// Worksheet names. Header layouts live in tables.go.
const (
	SheetChatsRaw    = "chats_raw"
	SheetMessagesRaw = "messages_raw"
	SheetUsers       = "users"
	SheetChatMetrics = "chat_metrics"
	SheetSpinMetrics = "spin_chat_metrics"
	SheetManagers    = "manager_summary"
	SheetChannels    = "channel_summary"
	SheetSnapshot    = "behavior_snapshot_managers"
	SheetHistory     = "history_behavior_managers"
	SheetDelta       = "weekly_behavior_delta_managers"
	SheetExamples    = "weekly_examples"
)

type Store struct {
	path string
	f    *excelize.File
	log  *logger.Logger
}

// Open loads the workbook at path, creating an empty one if the file
// does not exist yet.
func Open(path string) (*Store, error) {
	log := logger.New()
	log.Entry = log.WithField("component", "sheet").WithField("path", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info("workbook missing, starting empty")
		return &Store{path: path, f: excelize.NewFile(), log: log}, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Store{path: path, f: f, log: log}, nil
}

// Save flushes the workbook back to disk.
func (s *Store) Save() error {
	if err := s.f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.f.Close()
}

// readTable returns the sheet as header-keyed records. A missing sheet
// is an empty table, not an error; short rows read as empty cells.
func (s *Store) readTable(sheet string) ([]map[string]string, error) {
	if idx, err := s.f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, nil
	}
	rows, err := s.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := map[string]string{}
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(row) {
				rec[key] = row[i]
			} else {
				rec[key] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// overwrite replaces the sheet with header plus rows.
func (s *Store) overwrite(sheet string, header []string, rows [][]interface{}) error {
	if idx, err := s.f.GetSheetIndex(sheet); err == nil && idx != -1 {
		if err := s.f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("reset %s: %w", sheet, err)
		}
	}
	if _, err := s.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create %s: %w", sheet, err)
	}
	if err := s.setRow(sheet, 1, toCells(header)); err != nil {
		return err
	}
	for i, row := range rows {
		if err := s.setRow(sheet, i+2, row); err != nil {
			return err
		}
	}
	s.log.WithField("sheet", sheet).WithField("rows", len(rows)).Debug("sheet written")
	return nil
}

// appendRows adds rows after the current last row, creating the sheet
// with the header when absent. A header drift clears the sheet first so
// history columns stay aligned.
func (s *Store) appendRows(sheet string, header []string, rows [][]interface{}) error {
	idx, err := s.f.GetSheetIndex(sheet)
	if err != nil || idx == -1 {
		if _, err := s.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create %s: %w", sheet, err)
		}
		if err := s.setRow(sheet, 1, toCells(header)); err != nil {
			return err
		}
	} else {
		existing, err := s.f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read %s: %w", sheet, err)
		}
		if len(existing) == 0 || !sameHeader(existing[0], header) {
			s.log.WithField("sheet", sheet).Warn("header drift, clearing history sheet")
			if err := s.overwrite(sheet, header, nil); err != nil {
				return err
			}
		}
	}

	existing, err := s.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", sheet, err)
	}
	start := len(existing) + 1
	for i, row := range rows {
		if err := s.setRow(sheet, start+i, row); err != nil {
			return err
		}
	}
	s.log.WithField("sheet", sheet).WithField("appended", len(rows)).Debug("history appended")
	return nil
}

func (s *Store) setRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func sameHeader(got, want []string) bool {
	if len(got) < len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func toCells(header []string) []interface{} {
	out := make([]interface{}, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}
