package models

// AuditEntry is one append-only change log line. Fields map one-to-one onto
// the Audit_Log sheet columns; absent values stay empty.
type AuditEntry struct {
	TS       string
	Device   string
	Zone     string
	DrugCode string
	Field    string
	OldValue string
	NewValue string
	User     string
}
