package panels

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed endpoints/endpoints.yaml
var endpointsFS embed.FS

// endpointSet holds the per-panel URL paths. The panels are third-party
// products with fixed layouts, so the paths ship embedded rather than in
// runtime configuration; only the domain varies per reseller.
type endpointSet struct {
	Login     string `yaml:"login"`
	Renew     string `yaml:"renew"`
	Customers string `yaml:"customers"`
	Packages  string `yaml:"packages"`
	SiteKey   string `yaml:"site_key"`
}

var endpointRegistry = mustLoadEndpoints()

func mustLoadEndpoints() map[Panel]endpointSet {
	data, err := endpointsFS.ReadFile("endpoints/endpoints.yaml")
	if err != nil {
		panic(fmt.Sprintf("read embedded endpoints: %v", err))
	}

	var raw map[Panel]endpointSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("parse embedded endpoints: %v", err))
	}

	return raw
}

func endpointsFor(panel Panel) (endpointSet, error) {
	set, ok := endpointRegistry[panel]
	if !ok {
		return endpointSet{}, fmt.Errorf("no endpoints registered for panel %q", panel)
	}
	return set, nil
}
