package models

import "time"

// Request statuses
const (
	RequestStatusPending            = "pending"
	RequestStatusPublished          = "published"
	RequestStatusApproved           = "approved"
	RequestStatusRejected           = "rejected"
	RequestStatusQuoteUploadedAdmin = "quote_uploaded_by_admin"
	RequestStatusBilled             = "billed"
)

// RequestItem is a single line item on a procurement request.
type RequestItem struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Quantity   float64 `json:"quantity" validate:"required,gt=0"`
	Rate       float64 `json:"rate" validate:"gte=0"`
	GST        float64 `json:"gst" validate:"gte=0,lte=100"`
	UOM        string  `json:"uom" validate:"max=30"`
	Department string  `json:"department" validate:"required,max=100"`
}

// UnroutableItem records a line item that could not be routed to any vendor
// during a split because its department has no approved vendors.
type UnroutableItem struct {
	Department string        `json:"department"`
	Items      []RequestItem `json:"items"`
}

// Request is a procurement request. A parent request is created by a
// customer; splitting it produces per-department leaf requests that carry
// OriginalRequestID and a VisibleTo vendor set. Only leaves accept quotes.
type Request struct {
	ID                int              `json:"id"`
	RequestID         string           `json:"request_id"`
	CustomerID        int              `json:"customer_id"`
	CustomerName      string           `json:"customer_name,omitempty"`
	Items             []RequestItem    `json:"items"`
	Status            string           `json:"status"`
	Remarks           string           `json:"remarks,omitempty"`
	AdminQuoteFile    string           `json:"admin_quote_file,omitempty"`
	VisibleTo         []int            `json:"visible_to,omitempty"`
	OriginalRequestID *int             `json:"original_request_id,omitempty"`
	UnroutableItems   []UnroutableItem `json:"unroutable_items,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsLeaf reports whether the request is a department-scoped sub-request.
func (r *Request) IsLeaf() bool {
	return r.OriginalRequestID != nil
}

type CreateRequestInput struct {
	Items   []RequestItem `json:"items" validate:"required,min=1,dive"`
	Remarks string        `json:"remarks" validate:"max=1000"`
}

type RejectRequestInput struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}
