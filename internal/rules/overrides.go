package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadThresholds reads a threshold override file on top of the defaults.
// Omitted keys keep their default values; the catalog shape itself is fixed
// and cannot be changed from a file.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read rule thresholds: %w", err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse rule thresholds YAML: %w", err)
	}

	if err := t.validate(); err != nil {
		return t, err
	}

	return t, nil
}

func (t Thresholds) validate() error {
	if t.AcoasCritical <= 0 || t.AcoasEmergency <= t.AcoasCritical {
		return fmt.Errorf("acoas thresholds must satisfy 0 < critical < emergency")
	}
	if t.ConversionFloorFactor <= 0 || t.ConversionFloorFactor >= 1 {
		return fmt.Errorf("conversion_floor_factor must be in (0, 1)")
	}
	if t.CouponCapPct <= 0 || t.CouponCapPct > 100 {
		return fmt.Errorf("coupon_cap_pct must be in (0, 100]")
	}
	if t.MaxActions < 1 {
		return fmt.Errorf("max_actions must be >= 1")
	}
	return nil
}
