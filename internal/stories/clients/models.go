package clients

import "time"

// Client is a reseller's customer. The billing collaborator owns most of
// these fields; the renewal core reads and writes only the external panel
// identity and the renewal stamps.
type Client struct {
	ID                 int64
	UserID             int64
	Name               string
	WhatsApp           string
	PlanID             int64
	ExternalCustomerID string // empty means not linked to any panel
	DueDate            time.Time
	LastRenewedAt      *time.Time
	LastRenewalNote    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Criteria for fetching a single client
type GetCriteria struct {
	ID *int64
}

// Criteria for listing clients
type ListCriteria struct {
	UserID *int64
	PlanID *int64
	Limit  int
	Offset int
}

// Parameters for updating a client; the core only ever touches these.
type UpdateParams struct {
	ExternalCustomerID *string
	DueDate            *time.Time
	LastRenewedAt      *time.Time
	LastRenewalNote    *string
}
