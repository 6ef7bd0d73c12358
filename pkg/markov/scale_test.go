package markov

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

// entryWithCounts builds an entry whose followers are named f0, f1, ... in order.
func entryWithCounts(counts ...int) Entry {
	e := Entry{Prefix: []string{"the"}}
	for i, c := range counts {
		e.Followers = append(e.Followers, Follower{Word: fmt.Sprintf("f%d", i), Count: c})
	}
	return e
}

func values(s ScaledEntry) []int {
	out := make([]int, len(s.Followers))
	for i, f := range s.Followers {
		out[i] = f.Value
	}
	return out
}

func TestScaleEntry(t *testing.T) {
	testCases := []struct {
		name     string
		counts   []int
		opts     ScaleOptions
		strategy Strategy
		total    int
		values   []int
	}{
		{
			name:     "Dice scaling",
			counts:   []int{5, 3, 2},
			opts:     ScaleOptions{Dice: 6},
			strategy: StrategyDice,
			total:    6,
			values:   []int{3, 5, 6},
		},
		{
			name:     "Single follower takes the whole die",
			counts:   []int{4},
			opts:     ScaleOptions{Dice: 20},
			strategy: StrategyDice,
			total:    20,
			values:   []int{20},
		},
		{
			name:     "More followers than faces falls back",
			counts:   []int{1, 1, 1, 1},
			opts:     ScaleOptions{Dice: 3},
			strategy: StrategyDigits,
			total:    9,
			values:   []int{2, 5, 7, 9},
		},
		{
			name:     "Collapsed dice values fall back",
			counts:   []int{98, 1, 1},
			opts:     ScaleOptions{Dice: 3},
			strategy: StrategyDigits,
			total:    999,
			values:   []int{979, 989, 999},
		},
		{
			name:     "Digit range for a single-digit total",
			counts:   []int{2, 1},
			strategy: StrategyDigits,
			total:    9,
			values:   []int{6, 9},
		},
		{
			name:     "Digit range for a two-digit total",
			counts:   []int{5, 3, 2},
			strategy: StrategyDigits,
			total:    99,
			values:   []int{50, 79, 99},
		},
		{
			name:     "Raw counts are cumulative and unscaled",
			counts:   []int{5, 3, 2},
			opts:     ScaleOptions{Dice: 6, Raw: true},
			strategy: StrategyRaw,
			total:    10,
			values:   []int{5, 8, 10},
		},
		{
			name:     "No followers",
			counts:   nil,
			opts:     ScaleOptions{Dice: 6},
			strategy: StrategyEmpty,
			total:    0,
			values:   []int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScaleEntry(entryWithCounts(tc.counts...), tc.opts)
			if got.Strategy != tc.strategy {
				t.Errorf("Strategy = %s, want %s", got.Strategy, tc.strategy)
			}
			if got.Total != tc.total {
				t.Errorf("Total = %d, want %d", got.Total, tc.total)
			}
			if v := values(got); !reflect.DeepEqual(v, tc.values) {
				t.Errorf("values = %v, want %v", v, tc.values)
			}
			for i, f := range got.Followers {
				if f.Word != fmt.Sprintf("f%d", i) {
					t.Errorf("follower %d = %q, order was not preserved", i, f.Word)
				}
			}
		})
	}
}

func TestDiceScaleRejectsCollisions(t *testing.T) {
	if _, ok := DiceScale([]int{98, 99, 100}, 100, 3); ok {
		t.Error("expected DiceScale to report the prefix as unscalable")
	}
	if _, ok := DiceScale([]int{1, 2}, 2, 0); ok {
		t.Error("expected DiceScale to refuse a zero die")
	}
}

func TestDigitScaleLargeTotals(t *testing.T) {
	const total = 2_000_000_000
	values, m := DigitScale([]int{total / 2, total}, total)
	if m != 9_999_999_999 {
		t.Fatalf("M = %d, want 9999999999", m)
	}
	want := []int{5_000_000_000, 9_999_999_999}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("DigitScale() = %v, want %v", values, want)
	}
}

func TestScaleEntries(t *testing.T) {
	entries := []Entry{entryWithCounts(1), entryWithCounts(3, 1)}
	scaled := ScaleEntries(entries, ScaleOptions{Dice: 6})
	if len(scaled) != 2 {
		t.Fatalf("expected 2 scaled entries, got %d", len(scaled))
	}
	if v := values(scaled[1]); !reflect.DeepEqual(v, []int{5, 6}) {
		t.Errorf("values = %v, want [5 6]", v)
	}
	if scaled[0].Key() != "the" {
		t.Errorf("Key() = %q, want %q", scaled[0].Key(), "the")
	}
}

func TestPropertyScaling(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		counts := rapid.SliceOfN(rapid.IntRange(1, 1000), 1, 15).Draw(rt, "counts")
		dice := rapid.IntRange(0, 20).Draw(rt, "dice")

		e := entryWithCounts(counts...)
		s := ScaleEntry(e, ScaleOptions{Dice: dice})
		v := values(s)

		if len(v) != len(counts) {
			rt.Fatalf("got %d values for %d followers", len(v), len(counts))
		}

		switch s.Strategy {
		case StrategyDice:
			if len(counts) > dice {
				rt.Fatalf("dice scaling used with %d followers on a d%d", len(counts), dice)
			}
			if v[0] < 1 {
				rt.Fatalf("first value %d below 1", v[0])
			}
			for i := 1; i < len(v); i++ {
				if v[i] <= v[i-1] {
					rt.Fatalf("values not strictly increasing: %v", v)
				}
			}
			if v[len(v)-1] != dice || s.Total != dice {
				rt.Fatalf("last value %d, total %d, want %d", v[len(v)-1], s.Total, dice)
			}
		case StrategyDigits:
			if dice > 0 && len(counts) <= dice {
				if _, ok := DiceScale(e.Cumulative(), e.Total(), dice); ok {
					rt.Fatalf("fell back although dice scaling succeeds: %v on d%d", counts, dice)
				}
			}
			if s.Total < e.Total() || (s.Total+1)%10 != 0 {
				rt.Fatalf("digit range maximum %d does not bound total %d", s.Total, e.Total())
			}
			for i := 1; i < len(v); i++ {
				if v[i] < v[i-1] {
					rt.Fatalf("values decreasing: %v", v)
				}
			}
			if v[len(v)-1] != s.Total {
				rt.Fatalf("last value %d, want %d", v[len(v)-1], s.Total)
			}
		default:
			rt.Fatalf("unexpected strategy %s", s.Strategy)
		}
	})
}
