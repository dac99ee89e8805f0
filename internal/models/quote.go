package models

import "time"

// Quote statuses
const (
	QuoteStatusPending  = "pending"
	QuoteStatusApproved = "approved"
	QuoteStatusRejected = "rejected"
)

// QuoteItem carries the vendor's pricing for one request line item.
// Amount, GSTAmount and NetAmount are computed client-side and stored as
// submitted. A zero rate is valid (free-of-charge lines).
type QuoteItem struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description,omitempty" validate:"max=500"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	UOM         string  `json:"uom" validate:"required,max=30"`
	GST         float64 `json:"gst" validate:"gte=0,lte=100"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	GSTAmount   float64 `json:"gst_amount" validate:"gte=0"`
	NetAmount   float64 `json:"net_amount" validate:"gte=0"`
	Remark      string  `json:"remark,omitempty" validate:"max=500"`
}

// Quote is a vendor's bid on a leaf request. A vendor may hold at most one
// quote per leaf request.
type Quote struct {
	ID           int         `json:"id"`
	RequestRef   int         `json:"request_ref"`
	RequestID    string      `json:"request_id"`
	VendorID     int         `json:"vendor_id"`
	VendorName   string      `json:"vendor_name,omitempty"`
	VendorOrg    string      `json:"vendor_org,omitempty"`
	Items        []QuoteItem `json:"items"`
	TotalAmount  float64     `json:"total_amount"`
	Status       string      `json:"status"`
	Remarks      string      `json:"remarks,omitempty"`
	CustomerID   int         `json:"customer_id,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type SubmitQuoteInput struct {
	Items   []QuoteItem `json:"items" validate:"required,min=1,dive"`
	Remarks string      `json:"remarks" validate:"max=1000"`
}
