package plans

import (
	"time"

	"github.com/go-faster/errors"

	"revenda-crm/internal/panels"
)

// ErrAmbiguousIntegration means a stored plan row has two or more legacy
// integration flags set. That is a data-integrity violation introduced at
// plan creation; it can only come from rows written before validation
// existed.
var ErrAmbiguousIntegration = errors.New("plan has more than one integration flag set")

type Plan struct {
	ID             int64
	Name           string
	DurationMonths int
	Screens        int
	Price          float64
	Integration    IntegrationKind
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IntegrationKind is a tagged union over the panel integrations a plan can
// carry. Exactly one variant per plan by construction; the legacy schema's
// mutually exclusive boolean columns are an encoding detail of the storage
// layer.
type IntegrationKind interface {
	Panel() panels.Panel
	// Validate reports whether the variant carries the configuration its
	// panel requires.
	Validate() error
}

// None means the plan is purely local; renewals have nothing to do on any
// panel.
type None struct{}

func (None) Panel() panels.Panel { return "" }
func (None) Validate() error     { return nil }

// Ambiguous marks a legacy row that has two or more integration flags set.
// It cannot be constructed through the service; only the storage decoder
// produces it, so the dispatcher can surface the data-integrity violation
// instead of guessing a panel.
type Ambiguous struct{}

func (Ambiguous) Panel() panels.Panel { return "" }
func (Ambiguous) Validate() error     { return ErrAmbiguousIntegration }

type Sigma struct {
	Domain      string
	PackageCode string
}

func (Sigma) Panel() panels.Panel { return panels.PanelSigma }

func (s Sigma) Validate() error {
	if s.Domain == "" {
		return errors.New("sigma: domain is required")
	}
	if s.PackageCode == "" {
		return errors.New("sigma: package code is required")
	}
	return nil
}

// Live21 plans renew on the CloudNation panel; the flag name survives from
// the provider's rebrand.
type Live21 struct {
	Domain string
}

func (Live21) Panel() panels.Panel { return panels.PanelLive21 }

func (l Live21) Validate() error {
	if l.Domain == "" {
		return errors.New("live21: domain is required")
	}
	return nil
}

type Koffice struct {
	Domain      string
	PackageCode string
	ResellerID  string
}

func (Koffice) Panel() panels.Panel { return panels.PanelKoffice }

func (k Koffice) Validate() error {
	if k.Domain == "" {
		return errors.New("koffice: domain is required")
	}
	if k.PackageCode == "" {
		return errors.New("koffice: package code is required")
	}
	if k.ResellerID == "" {
		return errors.New("koffice: reseller id is required")
	}
	return nil
}

type Uniplay struct {
	Domain      string
	PackageCode string
}

func (Uniplay) Panel() panels.Panel { return panels.PanelUniplay }

func (u Uniplay) Validate() error {
	if u.Domain == "" {
		return errors.New("uniplay: domain is required")
	}
	if u.PackageCode == "" {
		return errors.New("uniplay: package code is required")
	}
	return nil
}

type UniTV struct {
	Domain      string
	PackageCode string
}

func (UniTV) Panel() panels.Panel { return panels.PanelUniTV }

func (u UniTV) Validate() error {
	if u.Domain == "" {
		return errors.New("unitv: domain is required")
	}
	if u.PackageCode == "" {
		return errors.New("unitv: package code is required")
	}
	return nil
}

type Rush struct {
	Domain      string
	PackageCode string
}

func (Rush) Panel() panels.Panel { return panels.PanelRush }

func (r Rush) Validate() error {
	if r.Domain == "" {
		return errors.New("rush: domain is required")
	}
	if r.PackageCode == "" {
		return errors.New("rush: package code is required")
	}
	return nil
}

type Club struct {
	Domain      string
	PackageCode string
}

func (Club) Panel() panels.Panel { return panels.PanelClub }

func (c Club) Validate() error {
	if c.Domain == "" {
		return errors.New("club: domain is required")
	}
	if c.PackageCode == "" {
		return errors.New("club: package code is required")
	}
	return nil
}

type PainelFoda struct {
	Domain      string
	PackageCode string
}

func (PainelFoda) Panel() panels.Panel { return panels.PanelPainelFoda }

func (p PainelFoda) Validate() error {
	if p.Domain == "" {
		return errors.New("painelfoda: domain is required")
	}
	if p.PackageCode == "" {
		return errors.New("painelfoda: package code is required")
	}
	return nil
}

// PackageCode returns the panel-assigned package code a variant carries,
// empty for variants without one.
func PackageCode(kind IntegrationKind) string {
	switch k := kind.(type) {
	case Sigma:
		return k.PackageCode
	case Koffice:
		return k.PackageCode
	case Uniplay:
		return k.PackageCode
	case UniTV:
		return k.PackageCode
	case Rush:
		return k.PackageCode
	case Club:
		return k.PackageCode
	case PainelFoda:
		return k.PackageCode
	default:
		return ""
	}
}

// Domain returns the panel deployment domain a variant points at.
func Domain(kind IntegrationKind) string {
	switch k := kind.(type) {
	case Sigma:
		return k.Domain
	case Live21:
		return k.Domain
	case Koffice:
		return k.Domain
	case Uniplay:
		return k.Domain
	case UniTV:
		return k.Domain
	case Rush:
		return k.Domain
	case Club:
		return k.Domain
	case PainelFoda:
		return k.Domain
	default:
		return ""
	}
}

// IntegrationFor builds the variant that stamps a plan with a panel's
// (domain, package code) identity. Koffice plans come back without a
// reseller id; the operator fills it in before renewals can run.
func IntegrationFor(panel panels.Panel, domain, code string) (IntegrationKind, error) {
	switch panel {
	case panels.PanelSigma:
		return Sigma{Domain: domain, PackageCode: code}, nil
	case panels.PanelLive21:
		return Live21{Domain: domain}, nil
	case panels.PanelKoffice:
		return Koffice{Domain: domain, PackageCode: code}, nil
	case panels.PanelUniplay:
		return Uniplay{Domain: domain, PackageCode: code}, nil
	case panels.PanelUniTV:
		return UniTV{Domain: domain, PackageCode: code}, nil
	case panels.PanelRush:
		return Rush{Domain: domain, PackageCode: code}, nil
	case panels.PanelClub:
		return Club{Domain: domain, PackageCode: code}, nil
	case panels.PanelPainelFoda:
		return PainelFoda{Domain: domain, PackageCode: code}, nil
	default:
		return nil, errors.Errorf("unknown panel %q", panel)
	}
}

// Criteria for fetching a single plan
type GetCriteria struct {
	ID *int64
}

// Criteria for deleting a plan
type DeleteCriteria struct {
	ID *int64
}

// Criteria for listing plans
type ListCriteria struct {
	Panel  *panels.Panel
	Limit  int
	Offset int
}

// Parameters for updating a plan
type UpdateParams struct {
	Name           *string
	DurationMonths *int
	Screens        *int
	Price          *float64
	Integration    IntegrationKind
}
