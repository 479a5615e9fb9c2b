// Package bia implements the business impact analysis engine: declared
// processes and assets with criticality tiers, and the derived
// organization-wide compliance level.
package bia

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TierPolicy defines the ordered criticality tiers and the baseline each
// tier maps to. Ordering is positional: Tiers[0] is the lowest. The policy
// is configuration, not code, so deployments can rename or extend tiers
// without a rebuild.
type TierPolicy struct {
	Tiers     []string          `yaml:"tiers"`
	Baselines map[string]string `yaml:"baselines"`

	rank map[string]int
}

// DefaultTierPolicy returns the built-in three-tier policy.
func DefaultTierPolicy() *TierPolicy {
	p := &TierPolicy{
		Tiers: []string{"low", "moderate", "high"},
		Baselines: map[string]string{
			"low":      "Baseline A",
			"moderate": "Baseline B",
			"high":     "Baseline C",
		},
	}
	p.index()
	return p
}

// LoadTierPolicy reads a tier policy from the YAML file at path. An empty
// path returns the default policy.
func LoadTierPolicy(path string) (*TierPolicy, error) {
	if path == "" {
		return DefaultTierPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier policy: %w", err)
	}

	var p TierPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse tier policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.index()
	return &p, nil
}

// Validate checks the policy for structural errors: no tiers, duplicate
// tiers, or a tier without a baseline mapping.
func (p *TierPolicy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("tier policy: no tiers defined")
	}
	seen := make(map[string]bool, len(p.Tiers))
	for _, tier := range p.Tiers {
		if tier == "" {
			return fmt.Errorf("tier policy: empty tier name")
		}
		if seen[tier] {
			return fmt.Errorf("tier policy: duplicate tier %q", tier)
		}
		seen[tier] = true
		if _, ok := p.Baselines[tier]; !ok {
			return fmt.Errorf("tier policy: tier %q has no baseline", tier)
		}
	}
	return nil
}

func (p *TierPolicy) index() {
	p.rank = make(map[string]int, len(p.Tiers))
	for i, tier := range p.Tiers {
		p.rank[tier] = i
	}
}

// Known reports whether the tier exists in the policy.
func (p *TierPolicy) Known(tier string) bool {
	_, ok := p.rank[tier]
	return ok
}

// Max returns the higher of two tiers. Both must be known.
func (p *TierPolicy) Max(a, b string) string {
	if p.rank[a] >= p.rank[b] {
		return a
	}
	return b
}

// Baseline returns the baseline label for a tier, or the empty string for
// an unknown tier.
func (p *TierPolicy) Baseline(tier string) string {
	return p.Baselines[tier]
}

// Lowest returns the lowest tier in the policy.
func (p *TierPolicy) Lowest() string {
	return p.Tiers[0]
}
