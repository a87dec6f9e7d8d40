package cluster

import (
	"fmt"
	"strings"
)

// Strategy selects how issues are grouped into clusters.
type Strategy int

const (
	// StrategyProximity groups issues whose lines are close together.
	StrategyProximity Strategy = iota

	// StrategySimilarity groups issues sharing a category regardless of
	// distance.
	StrategySimilarity

	// StrategyHybrid partitions by category first, then subdivides each
	// partition by proximity.
	StrategyHybrid
)

func (s Strategy) String() string {
	switch s {
	case StrategyProximity:
		return "proximity"
	case StrategySimilarity:
		return "similarity"
	case StrategyHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proximity":
		return StrategyProximity, nil
	case "similarity":
		return StrategySimilarity, nil
	case "hybrid":
		return StrategyHybrid, nil
	default:
		return StrategyProximity, fmt.Errorf("unknown clustering strategy: %s", s)
	}
}
