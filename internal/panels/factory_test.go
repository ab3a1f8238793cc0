package panels

import (
	"strings"
	"testing"

	"revenda-crm/internal/config"
	"revenda-crm/internal/proxy"
)

func testPanelsConfig() config.PanelsConfig {
	var cfg config.PanelsConfig
	cfg.RateLimit.Burst = 1
	cfg.RateLimit.RPS = 5
	return cfg
}

func testRotator(t *testing.T) *proxy.Rotator {
	t.Helper()
	rotator, err := proxy.NewRotator([]string{"http://10.0.0.1:3128"})
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	return rotator
}

func testSpec(panel Panel) AdapterSpec {
	return AdapterSpec{
		Panel:       panel,
		Domain:      "https://painel.example.com",
		Credentials: Credentials{Username: "reseller", Password: "secret"},
	}
}

func TestAdapterRefusesChallengePanelsWithoutSolverOrPool(t *testing.T) {
	for _, panel := range []Panel{PanelClub, PanelCloudNation} {
		t.Run(string(panel)+" without solver", func(t *testing.T) {
			f := NewFactory(nil, testRotator(t), testPanelsConfig(), testLogger())

			_, err := f.Adapter(testSpec(panel))
			if err == nil || !strings.Contains(err.Error(), "challenge solver") {
				t.Errorf("error = %v, want challenge solver requirement", err)
			}
		})

		t.Run(string(panel)+" without proxy pool", func(t *testing.T) {
			f := NewFactory(&fakeSolver{token: "t"}, nil, testPanelsConfig(), testLogger())

			_, err := f.Adapter(testSpec(panel))
			if err == nil || !strings.Contains(err.Error(), "proxy pool") {
				t.Errorf("error = %v, want proxy pool requirement", err)
			}
		})

		t.Run(string(panel)+" fully equipped", func(t *testing.T) {
			f := NewFactory(&fakeSolver{token: "t"}, testRotator(t), testPanelsConfig(), testLogger())

			adapter, err := f.Adapter(testSpec(panel))
			if err != nil {
				t.Fatalf("Adapter() error = %v", err)
			}
			if adapter.Panel() != panel {
				t.Errorf("Panel() = %s, want %s", adapter.Panel(), panel)
			}
		})
	}
}

func TestAdapterBuildsTokenPanelsWithoutSolverOrPool(t *testing.T) {
	f := NewFactory(nil, nil, testPanelsConfig(), testLogger())

	for _, panel := range []Panel{PanelSigma, PanelKoffice, PanelUniplay, PanelUniTV, PanelRush, PanelPainelFoda} {
		adapter, err := f.Adapter(testSpec(panel))
		if err != nil {
			t.Errorf("Adapter(%s) error = %v", panel, err)
			continue
		}
		if adapter.Panel() != panel {
			t.Errorf("Panel() = %s, want %s", adapter.Panel(), panel)
		}
	}
}

func TestAdapterMapsLive21ToCloudNation(t *testing.T) {
	f := NewFactory(&fakeSolver{token: "t"}, testRotator(t), testPanelsConfig(), testLogger())

	adapter, err := f.Adapter(testSpec(PanelLive21))
	if err != nil {
		t.Fatalf("Adapter() error = %v", err)
	}
	if adapter.Panel() != PanelCloudNation {
		t.Errorf("Panel() = %s, want cloudnation", adapter.Panel())
	}
}

func TestAdapterRequiresDomain(t *testing.T) {
	f := NewFactory(nil, nil, testPanelsConfig(), testLogger())

	spec := testSpec(PanelSigma)
	spec.Domain = ""
	if _, err := f.Adapter(spec); err == nil {
		t.Error("expected error for missing domain")
	}
}
