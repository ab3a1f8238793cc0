package panels

import (
	"fmt"
	"net/http"
	"time"
)

// Panel identifies a third-party reseller control system.
type Panel string

const (
	PanelSigma       Panel = "sigma"
	PanelLive21      Panel = "live21"
	PanelKoffice     Panel = "koffice"
	PanelUniplay     Panel = "uniplay"
	PanelUniTV       Panel = "unitv"
	PanelRush        Panel = "rush"
	PanelClub        Panel = "club"
	PanelCloudNation Panel = "cloudnation"
	PanelPainelFoda  Panel = "painelfoda"
)

// Session is the opaque credential a successful panel login yields. It is
// single-use: created inside one renewal or import operation and discarded
// when that operation finishes. Never persisted.
type Session struct {
	Panel   Panel
	Token   string
	Cookies []*http.Cookie
}

// Package is a panel-defined subscription product, identified by the
// provider-assigned code which is unique per (panel, domain).
type Package struct {
	Panel          Panel
	Domain         string
	Code           string
	Name           string
	DurationMonths int
	Screens        int
}

// Receipt carries what the panel returned for a successful renewal. Message
// is plain text; any HTML markup the panel embeds has been stripped.
type Receipt struct {
	NewExpiry time.Time
	Message   string
}

// Credentials are the reseller's login on a given panel.
type Credentials struct {
	Username string
	Password string
}

type AuthReason string

const (
	AuthInvalidCredentials AuthReason = "invalid_credentials"
	AuthChallengeFailed    AuthReason = "challenge_failed"
	AuthNetwork            AuthReason = "network"
)

// AuthError is a failed panel login. Terminal for the owning renewal.
type AuthError struct {
	Panel  Panel
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s auth failed (%s): %v", e.Panel, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s auth failed (%s)", e.Panel, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

type RenewalReason string

const (
	RenewalInvalidSession   RenewalReason = "invalid_session"
	RenewalCustomerNotFound RenewalReason = "customer_not_found"
	RenewalPanelRejected    RenewalReason = "panel_rejected"
	RenewalNetwork          RenewalReason = "network"
)

// RenewalError is a panel refusing or failing the renewal action.
type RenewalError struct {
	Panel  Panel
	Reason RenewalReason
	Err    error
}

func (e *RenewalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s renewal failed (%s): %v", e.Panel, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s renewal failed (%s)", e.Panel, e.Reason)
}

func (e *RenewalError) Unwrap() error { return e.Err }

// FetchError is a failed package catalog fetch.
type FetchError struct {
	Panel Panel
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s package fetch failed: %v", e.Panel, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
