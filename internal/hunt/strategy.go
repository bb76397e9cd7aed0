package hunt

import "fmt"

type StrategyKind string

const (
	StrategyFixed      StrategyKind = "fixed"
	StrategyRandomized StrategyKind = "randomized"
)

type SeedStrategy string

const (
	SeedTeam   SeedStrategy = "team"
	SeedGlobal SeedStrategy = "global"
)

// OrderingStrategy governs how stop positions are assigned per team.
// Seed is only meaningful when Kind is StrategyRandomized.
type OrderingStrategy struct {
	Kind StrategyKind
	Seed SeedStrategy
}

func Fixed() OrderingStrategy { return OrderingStrategy{Kind: StrategyFixed} }

func Randomized(seed SeedStrategy) OrderingStrategy {
	return OrderingStrategy{Kind: StrategyRandomized, Seed: seed}
}

// ParseStrategy builds a strategy from its stored column values.
func ParseStrategy(kind, seed string) (OrderingStrategy, error) {
	switch StrategyKind(kind) {
	case StrategyFixed:
		return Fixed(), nil
	case StrategyRandomized:
		switch SeedStrategy(seed) {
		case SeedTeam, "":
			return Randomized(SeedTeam), nil
		case SeedGlobal:
			return Randomized(SeedGlobal), nil
		}
		return OrderingStrategy{}, fmt.Errorf("unknown seed strategy %q", seed)
	}
	return OrderingStrategy{}, fmt.Errorf("unknown ordering strategy %q", kind)
}

func (s OrderingStrategy) String() string {
	if s.Kind == StrategyRandomized {
		return string(s.Kind) + "/" + string(s.Seed)
	}
	return string(s.Kind)
}
