package merge

import "github.com/codemend/codemend/pkg/errors"

// Strategy selects how fixed versions of a file are reconciled.
type Strategy int

const (
	// StrategyOracle hands every multi-version merge to the oracle.
	StrategyOracle Strategy = iota
	// StrategySequential applies versions in span order, first writer
	// wins; conflicting versions escalate to the oracle.
	StrategySequential
	// StrategyOctopus merges only when no two versions overlap;
	// overlapping versions escalate together.
	StrategyOctopus
)

func (s Strategy) String() string {
	switch s {
	case StrategyOracle:
		return "oracle"
	case StrategySequential:
		return "sequential"
	case StrategyOctopus:
		return "octopus"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a configuration value to a strategy. Empty selects
// the oracle strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "oracle":
		return StrategyOracle, nil
	case "sequential":
		return StrategySequential, nil
	case "octopus":
		return StrategyOctopus, nil
	default:
		return StrategyOracle, errors.NewError(errors.ErrorTypeConfiguration).
			WithMessagef("unknown merge strategy %q", s).
			Build()
	}
}
