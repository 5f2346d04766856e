package counting

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Export renders the device's table as an .xlsx workbook. Blank cells stay
// blank; the suggested filename carries the table name.
func (s *Service) Export(ctx context.Context, device string) ([]byte, string, error) {
	table := s.ResolveTableName(device)

	snapshot, err := s.store.ReadAll(ctx, table)
	if err != nil {
		return nil, "", fmt.Errorf("export table %s: %w", table, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, column := range snapshot.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, "", fmt.Errorf("export table %s: %w", table, err)
		}
		if err := f.SetCellValue(sheet, cell, column); err != nil {
			return nil, "", fmt.Errorf("export table %s: %w", table, err)
		}
	}

	for r, row := range snapshot.Rows {
		for c, column := range snapshot.Header {
			value := row.Get(column)
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, "", fmt.Errorf("export table %s: %w", table, err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("export table %s: %w", table, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, "", fmt.Errorf("export table %s: %w", table, err)
	}

	s.logger.Debug("table exported", zap.String("table", table), zap.Int("rows", len(snapshot.Rows)))
	return buf.Bytes(), table + ".xlsx", nil
}
