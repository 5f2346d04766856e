package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/repository/sheets"
)

// AuditTable is the shared append-only change log tab.
const AuditTable = "Audit_Log"

// auditHeader is the fixed Audit_Log column set, in storage order.
var auditHeader = []string{"ts", "device", "zone", "drug_code", "field", "old_value", "new_value", "user"}

// DefaultCacheTTL bounds how stale a read snapshot may get.
const DefaultCacheTTL = 5 * time.Second

// TableStore is the persistence surface the counting service works against.
// All writes leave the read cache untouched; callers invalidate after a
// successful write.
type TableStore interface {
	Ensure(ctx context.Context, table string, header []string) error
	ReadAll(ctx context.Context, table string) (Table, error)
	Append(ctx context.Context, table string, rec *Record) error
	Upsert(ctx context.Context, table string, keyColumns []string, rec *Record) error
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	Invalidate(table string)
}

// Store implements TableStore on top of a remote spreadsheet.
type Store struct {
	client sheets.Client
	cache  *tableCache
	logger *zap.Logger
}

var _ TableStore = (*Store)(nil)

// New builds a Store. A non-positive ttl falls back to DefaultCacheTTL.
func New(client sheets.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		client: client,
		cache:  newTableCache(ttl),
		logger: logger,
	}
}

// Ensure creates the tab when missing. When a header is given and the tab
// holds no values at all, the header becomes the first row. Safe to call
// repeatedly.
func (s *Store) Ensure(ctx context.Context, table string, header []string) error {
	exists, err := s.client.SheetExists(ctx, table)
	if err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}

	if !exists {
		if err := s.client.AddSheet(ctx, table); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
		if len(header) > 0 {
			if err := s.client.AppendRow(ctx, table, toValues(header)); err != nil {
				return fmt.Errorf("ensure table %s: %w", table, err)
			}
		}
		return nil
	}

	if len(header) == 0 {
		return nil
	}

	values, err := s.client.ReadAll(ctx, table)
	if err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}
	if len(values) == 0 {
		if err := s.client.AppendRow(ctx, table, toValues(header)); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
	}
	return nil
}

// ReadAll returns the table snapshot, serving repeated reads from a short
// TTL cache. A missing tab reads as an empty table, and that emptiness is
// cached like any other result.
func (s *Store) ReadAll(ctx context.Context, table string) (Table, error) {
	if cached, ok := s.cache.get(table); ok {
		return cached, nil
	}

	values, err := s.client.ReadAll(ctx, table)
	if err != nil && !errors.Is(err, sheets.ErrSheetNotFound) {
		return Table{}, fmt.Errorf("read table %s: %w", table, err)
	}

	snapshot := tableFromValues(table, values)
	s.cache.set(table, snapshot)
	return snapshot, nil
}

// Append writes the record as a new row, widening the header first when the
// record carries new columns.
func (s *Store) Append(ctx context.Context, table string, rec *Record) error {
	if err := s.Ensure(ctx, table, nil); err != nil {
		return err
	}

	header, err := s.normalizeHeader(ctx, table, rec)
	if err != nil {
		return err
	}

	if err := s.client.AppendRow(ctx, table, projectRecord(rec, header)); err != nil {
		return fmt.Errorf("append to table %s: %w", table, err)
	}

	s.logger.Debug("row appended", zap.String("table", table))
	return nil
}

// Upsert overwrites the first row whose key columns all equal the record's
// values as text (missing compares as empty), or appends when no row
// matches. The scan runs over the cached snapshot; interleaved writers are
// not coordinated and the last write applies.
func (s *Store) Upsert(ctx context.Context, table string, keyColumns []string, rec *Record) error {
	if err := s.Ensure(ctx, table, nil); err != nil {
		return err
	}

	header, err := s.normalizeHeader(ctx, table, rec)
	if err != nil {
		return err
	}

	snapshot, err := s.ReadAll(ctx, table)
	if err != nil {
		return err
	}

	for i, row := range snapshot.Rows {
		if !rowMatches(row, keyColumns, rec) {
			continue
		}
		rowNum := i + 2
		if err := s.client.UpdateRow(ctx, table, rowNum, projectRecord(rec, header)); err != nil {
			return fmt.Errorf("upsert into table %s: %w", table, err)
		}
		s.logger.Debug("row overwritten", zap.String("table", table), zap.Int("row", rowNum))
		return nil
	}

	if err := s.client.AppendRow(ctx, table, projectRecord(rec, header)); err != nil {
		return fmt.Errorf("upsert into table %s: %w", table, err)
	}

	s.logger.Debug("row appended", zap.String("table", table))
	return nil
}

// AppendAudit appends one entry to the shared audit log, creating the tab
// with its fixed header on first use.
func (s *Store) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	if err := s.Ensure(ctx, AuditTable, auditHeader); err != nil {
		return err
	}

	values := []interface{}{
		entry.TS,
		entry.Device,
		entry.Zone,
		entry.DrugCode,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.User,
	}
	if err := s.client.AppendRow(ctx, AuditTable, values); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	s.logger.Debug("audit entry appended",
		zap.String("drug", entry.DrugCode),
		zap.String("field", entry.Field),
	)
	return nil
}

// Invalidate drops the cached snapshot for the table so the next read
// refetches.
func (s *Store) Invalidate(table string) {
	s.cache.invalidate(table)
}

// normalizeHeader widens the header row to cover every record column,
// keeping the existing order and appending new columns in record order.
// Returns the full column order for projecting rows.
func (s *Store) normalizeHeader(ctx context.Context, table string, rec *Record) ([]string, error) {
	values, err := s.client.ReadAll(ctx, table)
	if err != nil && !errors.Is(err, sheets.ErrSheetNotFound) {
		return nil, fmt.Errorf("normalize header of table %s: %w", table, err)
	}

	var header []string
	if len(values) > 0 {
		header = make([]string, len(values[0]))
		for i, cell := range values[0] {
			header[i] = cellText(cell)
		}
	}

	known := make(map[string]bool, len(header))
	for _, column := range header {
		known[column] = true
	}

	merged := append([]string(nil), header...)
	added := false
	for _, column := range rec.Columns() {
		if !known[column] {
			merged = append(merged, column)
			added = true
		}
	}
	if !added {
		return merged, nil
	}

	if len(values) == 0 {
		if err := s.client.AppendRow(ctx, table, toValues(merged)); err != nil {
			return nil, fmt.Errorf("normalize header of table %s: %w", table, err)
		}
		return merged, nil
	}

	// Rewrite row one in place: drop it, then insert the widened header.
	// Data rows keep their positions.
	if err := s.client.DeleteRow(ctx, table, 1); err != nil {
		return nil, fmt.Errorf("normalize header of table %s: %w", table, err)
	}
	if err := s.client.InsertRow(ctx, table, 1, toValues(merged)); err != nil {
		return nil, fmt.Errorf("normalize header of table %s: %w", table, err)
	}

	s.logger.Debug("header widened", zap.String("table", table), zap.Int("columns", len(merged)))
	return merged, nil
}

// tableFromValues maps raw sheet values onto the Table model. Row one is the
// header; blank cells are dropped so missing and empty read the same; cells
// beyond the header width are ignored.
func tableFromValues(name string, values [][]interface{}) Table {
	t := Table{Name: name}
	if len(values) == 0 {
		return t
	}

	t.Header = make([]string, len(values[0]))
	for i, cell := range values[0] {
		t.Header[i] = cellText(cell)
	}

	t.Rows = make([]Row, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make(Row)
		for i, column := range t.Header {
			if i >= len(raw) {
				break
			}
			if text := cellText(raw[i]); text != "" {
				row[column] = text
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func rowMatches(row Row, keyColumns []string, rec *Record) bool {
	for _, column := range keyColumns {
		if row.Get(column) != rec.Get(column) {
			return false
		}
	}
	return true
}

// projectRecord lays the record out in header order, blank for absent
// columns.
func projectRecord(rec *Record, header []string) []interface{} {
	values := make([]interface{}, len(header))
	for i, column := range header {
		values[i] = rec.Get(column)
	}
	return values
}

func toValues(cells []string) []interface{} {
	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		values[i] = cell
	}
	return values
}

// cellText renders a sheet cell the way the page shows it.
func cellText(cell interface{}) string {
	if cell == nil {
		return ""
	}
	return fmt.Sprint(cell)
}
