package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorscan/rotorscan/internal/domain/rrg"
)

func accel(symbol string, momentum, periodReturn float64) rrg.Coordinate {
	return rrg.Coordinate{Symbol: symbol, RSMomentum: momentum, PeriodReturn: periodReturn}
}

func TestTopPicksRankingAndTieBreaks(t *testing.T) {
	coords := []rrg.Coordinate{
		accel("SOL", 104, 8),
		accel("AVAX", 104, 8), // full tie with SOL, alphabetical first
		accel("LINK", 104, 9), // same momentum, higher return
		accel("ETH", 110, 2),
		accel("DOGE", 90, -3),
	}

	picks := TopPicks(coords)
	require.Len(t, picks, TopN)
	assert.Equal(t, "ETH", picks[0].Symbol)
	assert.Equal(t, "LINK", picks[1].Symbol)
	assert.Equal(t, "AVAX", picks[2].Symbol)
	assert.Equal(t, 1, picks[0].Rank)
	assert.Equal(t, 3, picks[2].Rank)
}

func TestTopPicksFewerThanThree(t *testing.T) {
	picks := TopPicks([]rrg.Coordinate{accel("ETH", 101, 1)})
	require.Len(t, picks, 1)
	assert.Equal(t, "ETH", picks[0].Symbol)
}

func TestActionGroupsPartitionEveryAsset(t *testing.T) {
	coords := []rrg.Coordinate{
		accel("A", 110, 5),
		accel("B", 108, 4),
		accel("C", 106, 3),
		accel("D", 104, 2),
		accel("E", 102, 1),
		accel("F", 99, 0),
		accel("G", 97, -1),
		accel("H", 95, -2),
		accel("I", 93, -3),
	}

	groups := ActionGroups(coords)
	assigned := map[string]Action{}
	total := 0
	for _, g := range groups {
		for _, s := range g.Symbols {
			_, dup := assigned[s]
			require.False(t, dup, "symbol %s in two buckets", s)
			assigned[s] = g.Action
			total++
		}
	}
	require.Equal(t, len(coords), total)

	// Rank 1-3 buy; rank 4-6 still accelerating watch; decelerating
	// mid-table reduce; trailing decelerators avoid.
	assert.Equal(t, ActionBuy, assigned["A"])
	assert.Equal(t, ActionBuy, assigned["C"])
	assert.Equal(t, ActionWatch, assigned["D"])
	assert.Equal(t, ActionWatch, assigned["E"])
	assert.Equal(t, ActionReduce, assigned["F"])
	assert.Equal(t, ActionAvoid, assigned["H"])
	assert.Equal(t, ActionAvoid, assigned["I"])
}

func TestActionGroupsDeceleratingRankFourIsNotWatch(t *testing.T) {
	coords := []rrg.Coordinate{
		accel("A", 110, 5),
		accel("B", 108, 4),
		accel("C", 106, 3),
		accel("D", 99, 2), // rank 4 but decelerating
		accel("E", 98, 1),
		accel("F", 97, 0),
		accel("G", 96, -1),
	}

	groups := ActionGroups(coords)
	assigned := map[string]Action{}
	for _, g := range groups {
		for _, s := range g.Symbols {
			assigned[s] = g.Action
		}
	}
	assert.Equal(t, ActionReduce, assigned["D"])
}
