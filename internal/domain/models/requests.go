package models

// SaveCountRequest is the payload to record a counted quantity for an
// existing inventory line. Quantity travels as text and is coerced by the
// service.
type SaveCountRequest struct {
	Device   string `json:"device"`
	DrugName string `json:"drug_name" binding:"required"`
	Location string `json:"location" binding:"required"`
	Quantity string `json:"quantity"`
	Note     string `json:"note"`
}

// AddItemRequest is the payload to append a new inventory line.
type AddItemRequest struct {
	Device   string `json:"device"`
	DrugName string `json:"drug_name"`
	Location string `json:"location"`
	Quantity string `json:"quantity"`
	Note     string `json:"note"`
}
