package dto

// CreateCheckoutRequestInput opens a checkout request for a room.
type CreateCheckoutRequestInput struct {
	RoomNumber string `json:"roomNumber" binding:"required"`
	Mode       string `json:"mode" binding:"required"`
}

// AssignEmployeeInput assigns an employee to a request.
type AssignEmployeeInput struct {
	Employee string `json:"employee" binding:"required"`
}

// ItemCountInput is one operator-entered consumable count.
type ItemCountInput struct {
	ItemID           string `json:"itemId" binding:"required"`
	ReturnedQty      int64  `json:"returnedQty"`
	ReturnLocationID string `json:"returnLocationId,omitempty"`
}

// AssetConditionInput is one operator-entered asset condition.
type AssetConditionInput struct {
	AssetID     string `json:"assetId" binding:"required"`
	ReturnedQty int64  `json:"returnedQty"`
	Damaged     bool   `json:"damaged"`
	DamageNotes string `json:"damageNotes,omitempty"`
}

// InventoryCheckInput submits the reconciliation for a request.
type InventoryCheckInput struct {
	Items     []ItemCountInput      `json:"items"`
	Assets    []AssetConditionInput `json:"assets"`
	Notes     string                `json:"notes,omitempty"`
	CheckedBy string                `json:"checkedBy,omitempty"`
}

// FinalizeCheckoutInput finalizes a checkout.
type FinalizeCheckoutInput struct {
	RoomNumber    string `json:"roomNumber" binding:"required"`
	Mode          string `json:"mode" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
	Discount      string `json:"discount,omitempty"`
}
