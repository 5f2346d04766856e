package models

// CountRow is one inventory line as rendered to the counting page.
type CountRow struct {
	DrugName  string `json:"drug_name"`
	Location  string `json:"location"`
	Zone      string `json:"zone"`
	Quantity  string `json:"quantity"`
	Note      string `json:"note"`
	CountedBy string `json:"counted_by"`
	UpdatedAt string `json:"updated_at"`
	Editable  bool   `json:"editable"`
}

// Progress summarizes how much of a table has been counted.
type Progress struct {
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Percent float64 `json:"percent"`
}

// DeviceProgress pairs a device with the counting progress of its table.
type DeviceProgress struct {
	Device   string   `json:"device"`
	Table    string   `json:"table"`
	Progress Progress `json:"progress"`
}

// CountView is the full page payload for one device's counting table.
type CountView struct {
	Device   string     `json:"device"`
	Table    string     `json:"table"`
	Operator string     `json:"operator"`
	Zones    []string   `json:"zones"`
	Rows     []CountRow `json:"rows"`
	Progress Progress   `json:"progress"`
}

// ViewFilter captures the counting page row filters.
type ViewFilter struct {
	Zone           string
	Keyword        string
	HideCompleted  bool
	SortByLocation bool
}
