package plans

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Loader manages plan configuration from plans.yaml
 * Provides in-memory lookup for fast access
 */

// Config represents the structure of plans.yaml
type Config struct {
	DefaultTier string       `yaml:"default_tier"`
	Plans       []PlanConfig `yaml:"plans"`
}

// PlanConfig represents a single plan in the YAML file
type PlanConfig struct {
	PriceID string `yaml:"price_id"`
	Tier    string `yaml:"tier"`
	Name    string `yaml:"name"`
	Level   int    `yaml:"level"`
}

// Loader holds the loaded plans
type Loader struct {
	byPrice     map[string]*Plan
	byTier      map[string]*Plan
	defaultTier string
}

// NewLoader creates a new plan loader
func NewLoader() *Loader {
	return &Loader{
		byPrice:     make(map[string]*Plan),
		byTier:      make(map[string]*Plan),
		defaultTier: "free",
	}
}

// Load reads and parses the plans.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading plans file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing plans YAML: %w", err)
	}

	if config.DefaultTier != "" {
		l.defaultTier = config.DefaultTier
	}

	for _, pc := range config.Plans {
		plan := &Plan{
			PriceID: pc.PriceID,
			Tier:    pc.Tier,
			Name:    pc.Name,
			Level:   pc.Level,
		}

		if err := plan.Validate(); err != nil {
			return fmt.Errorf("validating plan: %w", err)
		}

		l.byPrice[plan.PriceID] = plan
		l.byTier[plan.Tier] = plan
	}

	return nil
}

// Resolve returns the plan for a price ID. The second return value is false
// for unknown price IDs, in which case the default plan is returned.
func (l *Loader) Resolve(priceID string) (*Plan, bool) {
	if plan, ok := l.byPrice[priceID]; ok {
		return plan, true
	}
	return l.Default(), false
}

// ByTier returns the plan with the given tier name
func (l *Loader) ByTier(tier string) (*Plan, bool) {
	plan, ok := l.byTier[tier]
	return plan, ok
}

// Default returns the fallback plan for unknown price IDs and cancellations
func (l *Loader) Default() *Plan {
	if plan, ok := l.byTier[l.defaultTier]; ok {
		return plan
	}
	return &Plan{Tier: l.defaultTier, Name: l.defaultTier, Level: 0}
}

// List returns all loaded plans
func (l *Loader) List() []*Plan {
	out := make([]*Plan, 0, len(l.byPrice))
	for _, plan := range l.byPrice {
		out = append(out, plan)
	}
	return out
}
