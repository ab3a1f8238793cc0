package credentials

import (
	"time"

	"revenda-crm/internal/panels"
)

// StoredCredentials is a reseller's login for one panel deployment.
//
// Password is kept reversible because every Authenticate call must replay
// it against the panel's login form. At rest it is base64-encoded — that is
// encoding, not encryption, and offers no confidentiality; it is kept
// bug-compatible with the data already in production. Moving to
// authenticated encryption with a server-held key needs a migration over
// the existing rows first.
type StoredCredentials struct {
	ID        int64
	UserID    int64
	Panel     panels.Panel
	Domain    string
	Username  string
	Password  string // base64 at rest; the service encodes on Save and decodes on Get
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Criteria for looking up credentials
type GetCriteria struct {
	UserID int64
	Panel  panels.Panel
	Domain string // optional; some panels have one deployment per reseller
}
