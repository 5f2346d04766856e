package store

// Row is one table line keyed by column name. Blank cells are stored as
// absent keys, so missing and empty read the same.
type Row map[string]string

// Get returns the cell text for the column, or "" when the cell is blank or
// the column absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Has reports whether the row holds a value for the column.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Table is an in-memory snapshot of one sheet tab. Header order is storage
// order; Rows[i] corresponds to sheet row i+2.
type Table struct {
	Name   string
	Header []string
	Rows   []Row
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// clone returns a deep copy so cached snapshots stay isolated from callers.
func (t Table) clone() Table {
	out := Table{Name: t.Name}
	if t.Header != nil {
		out.Header = append([]string(nil), t.Header...)
	}
	if t.Rows != nil {
		out.Rows = make([]Row, len(t.Rows))
		for i, row := range t.Rows {
			cp := make(Row, len(row))
			for column, value := range row {
				cp[column] = value
			}
			out.Rows[i] = cp
		}
	}
	return out
}
