package panels

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"revenda-crm/internal/config"
	"revenda-crm/internal/proxy"
)

// Factory builds panel adapters per operation. Adapters are cheap and
// stateless between calls; credentials and domain vary per plan, so nothing
// is cached here beyond the shared solver, proxy pool and rate limiter.
type Factory struct {
	solver  Solver
	rotator *proxy.Rotator
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewFactory(solver Solver, rotator *proxy.Rotator, cfg config.PanelsConfig, logger *slog.Logger) *Factory {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Factory{
		solver:  solver,
		rotator: rotator,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		logger:  logger,
	}
}

// AdapterSpec names the panel deployment an adapter should talk to.
type AdapterSpec struct {
	Panel       Panel
	Domain      string
	Credentials Credentials
	ResellerID  string // koffice only
}

// Adapter returns the variant that speaks the given panel's protocol.
// Live21 plans renew on the CloudNation panel; the flag name is historical.
func (f *Factory) Adapter(spec AdapterSpec) (Adapter, error) {
	panel := spec.Panel
	if panel == PanelLive21 {
		panel = PanelCloudNation
	}

	eps, err := endpointsFor(panel)
	if err != nil {
		return nil, err
	}
	domain, creds := spec.Domain, spec.Credentials
	if domain == "" {
		return nil, errors.Errorf("panel %s: domain is required", panel)
	}

	switch panel {
	case PanelSigma:
		return newSigma(f.plainRest(domain), eps, creds, f.logger), nil
	case PanelKoffice:
		return newKoffice(f.plainRest(domain), eps, creds, spec.ResellerID, f.logger), nil
	case PanelUniplay:
		return newUniplay(f.plainRest(domain), eps, creds, f.logger), nil
	case PanelUniTV:
		return newUniTV(f.plainRest(domain), eps, creds, f.logger), nil
	case PanelRush:
		return newRush(f.plainRest(domain), eps, creds, f.logger), nil
	case PanelPainelFoda:
		return newPainelFoda(f.plainRest(domain), eps, creds, f.logger), nil
	case PanelClub:
		if f.solver == nil {
			return nil, errors.Errorf("panel %s requires a challenge solver", panel)
		}
		// These panels block by source IP; direct egress gets the
		// reseller's address banned. No pool, no adapter.
		if f.rotator == nil {
			return nil, errors.Errorf("panel %s requires a proxy pool", panel)
		}
		return newClub(f.proxiedRest(domain), eps, creds, f.solver, domain, f.logger), nil
	case PanelCloudNation:
		if f.solver == nil {
			return nil, errors.Errorf("panel %s requires a challenge solver", panel)
		}
		if f.rotator == nil {
			return nil, errors.Errorf("panel %s requires a proxy pool", panel)
		}
		return newCloudNation(f.proxiedRest(domain), eps, creds, f.solver, domain, f.logger), nil
	default:
		return nil, errors.Errorf("unknown panel %q", panel)
	}
}

func (f *Factory) plainRest(domain string) *rest {
	return &rest{
		baseURL:    domain,
		httpClient: newHTTPClient(f.timeout, nil),
		limiter:    f.limiter,
	}
}

// proxiedRest routes every request through the rotating egress pool. These
// panels block traffic by source IP.
func (f *Factory) proxiedRest(domain string) *rest {
	return &rest{
		baseURL:    domain,
		httpClient: newHTTPClient(f.timeout, f.rotator),
		limiter:    f.limiter,
	}
}
