package rotation

import (
	"sort"

	"github.com/rotorscan/rotorscan/internal/domain/rrg"
)

// TopN is the fixed size of the top-picks list.
const TopN = 3

// Action buckets an asset by where it sits in the acceleration ranking.
type Action string

const (
	ActionBuy    Action = "buy"
	ActionWatch  Action = "watch"
	ActionReduce Action = "reduce"
	ActionAvoid  Action = "avoid"
)

// Pick is one ranked top-pick entry.
type Pick struct {
	Rank         int     `json:"rank"`
	Symbol       string  `json:"symbol"`
	RSMomentum   float64 `json:"rs_momentum"`
	PeriodReturn float64 `json:"period_return"`
}

// ActionGroup lists the symbols assigned to one action bucket.
type ActionGroup struct {
	Action  Action   `json:"action"`
	Symbols []string `json:"symbols"`
}

// rankByAcceleration orders coordinates by RS-Momentum descending, breaking
// ties on period return descending and finally alphabetical symbol. The
// explicit tie-break keeps fixtures reproducible.
func rankByAcceleration(coords []rrg.Coordinate) []rrg.Coordinate {
	ranked := make([]rrg.Coordinate, len(coords))
	copy(ranked, coords)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RSMomentum != ranked[j].RSMomentum {
			return ranked[i].RSMomentum > ranked[j].RSMomentum
		}
		if ranked[i].PeriodReturn != ranked[j].PeriodReturn {
			return ranked[i].PeriodReturn > ranked[j].PeriodReturn
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	return ranked
}

// TopPicks returns the TopN fastest-accelerating assets.
func TopPicks(coords []rrg.Coordinate) []Pick {
	ranked := rankByAcceleration(coords)
	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	picks := make([]Pick, len(ranked))
	for i, c := range ranked {
		picks[i] = Pick{
			Rank:         i + 1,
			Symbol:       c.Symbol,
			RSMomentum:   c.RSMomentum,
			PeriodReturn: c.PeriodReturn,
		}
	}
	return picks
}

// ActionGroups assigns every asset to exactly one bucket:
//
//	rank 1-3                          buy
//	rank 4-6, still accelerating      watch
//	decelerating, not bottom-3        reduce
//	everything else                   avoid
func ActionGroups(coords []rrg.Coordinate) []ActionGroup {
	ranked := rankByAcceleration(coords)
	n := len(ranked)

	buckets := map[Action][]string{}
	for i, c := range ranked {
		rank := i + 1
		switch {
		case rank <= TopN:
			buckets[ActionBuy] = append(buckets[ActionBuy], c.Symbol)
		case rank <= 2*TopN && c.RSMomentum >= 100:
			buckets[ActionWatch] = append(buckets[ActionWatch], c.Symbol)
		case c.RSMomentum < 100 && rank <= n-TopN:
			buckets[ActionReduce] = append(buckets[ActionReduce], c.Symbol)
		default:
			buckets[ActionAvoid] = append(buckets[ActionAvoid], c.Symbol)
		}
	}

	groups := make([]ActionGroup, 0, 4)
	for _, action := range []Action{ActionBuy, ActionWatch, ActionReduce, ActionAvoid} {
		if symbols := buckets[action]; len(symbols) > 0 {
			groups = append(groups, ActionGroup{Action: action, Symbols: symbols})
		}
	}
	return groups
}
