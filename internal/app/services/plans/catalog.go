package plans

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flockhq/flock/internal/app/domain/plan"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog maps tiers to their defaults.
type Catalog struct {
	order []plan.Tier
	plans map[plan.Tier]plan.Plan
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded plan catalog: %v", err))
	}
	return c
}

// ParseCatalog reads a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Plans []plan.Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}
	if len(doc.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}
	c := &Catalog{plans: make(map[plan.Tier]plan.Plan, len(doc.Plans))}
	for _, p := range doc.Plans {
		p.Tier = plan.Tier(strings.ToLower(strings.TrimSpace(string(p.Tier))))
		if p.Tier == "" {
			return nil, fmt.Errorf("plan without tier")
		}
		if _, dup := c.plans[p.Tier]; dup {
			return nil, fmt.Errorf("duplicate tier %q", p.Tier)
		}
		if p.MonthlyTokenQuota < 0 || p.MaxUsers < 0 {
			return nil, fmt.Errorf("tier %q has negative limits", p.Tier)
		}
		c.plans[p.Tier] = p
		c.order = append(c.order, p.Tier)
	}
	return c, nil
}

// Lookup returns the plan for tier.
func (c *Catalog) Lookup(tier plan.Tier) (plan.Plan, bool) {
	p, ok := c.plans[plan.Tier(strings.ToLower(string(tier)))]
	return p, ok
}

// Tiers lists the tiers in catalog order.
func (c *Catalog) Tiers() []plan.Plan {
	out := make([]plan.Plan, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.plans[t])
	}
	return out
}
