package plans

import "fmt"

/* Plan maps a provider price ID to a subscription tier
 * Pure lookup data: resolving a tier never fails, unknown price IDs fall
 * back to the default plan (the caller logs the warning)
 */
type Plan struct {
	PriceID string
	Tier    string
	Name    string
	// Level orders tiers so handlers can tell an upgrade from a downgrade
	Level int
}

// Validate checks if the plan configuration is valid
func (p *Plan) Validate() error {
	if p.PriceID == "" {
		return fmt.Errorf("price_id cannot be empty")
	}
	if p.Tier == "" {
		return fmt.Errorf("tier cannot be empty for price %s", p.PriceID)
	}
	if p.Level < 0 {
		return fmt.Errorf("level cannot be negative for price %s", p.PriceID)
	}
	return nil
}

// ChangeKind describes the direction of a tier change between two plans
func ChangeKind(old, new *Plan) string {
	switch {
	case old == nil:
		return "new"
	case new.Level > old.Level:
		return "upgrade"
	case new.Level < old.Level:
		return "downgrade"
	case new.Tier != old.Tier:
		return "lateral"
	default:
		return "unchanged"
	}
}
