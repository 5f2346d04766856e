package store

// Record is an ordered column to value mapping used for writes. Column order
// is insertion order; when a record introduces columns the table has never
// seen, they join the header in this order.
type Record struct {
	columns []string
	values  map[string]string
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set stores the value under the column, registering the column on first use.
func (r *Record) Set(column, value string) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value for the column, or the empty string when absent.
func (r *Record) Get(column string) string {
	return r.values[column]
}

// Has reports whether the column was set.
func (r *Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Columns returns the column names in insertion order.
func (r *Record) Columns() []string {
	return r.columns
}

// Len returns the number of columns set.
func (r *Record) Len() int {
	return len(r.columns)
}
