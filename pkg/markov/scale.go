package markov

import (
	"fmt"
	"math/bits"
)

// Strategy identifies how an entry's cumulative counts were mapped for output.
type Strategy int

const (
	// StrategyEmpty marks an entry with no follower occurrences.
	StrategyEmpty Strategy = iota
	// StrategyRaw keeps the exact cumulative counts.
	StrategyRaw
	// StrategyDice maps onto [1, D] for a caller-chosen die size D.
	StrategyDice
	// StrategyDigits maps onto [0, 10^k-1], where k is the number of digits in the total.
	StrategyDigits
)

func (s Strategy) String() string {
	switch s {
	case StrategyEmpty:
		return "empty"
	case StrategyRaw:
		return "raw"
	case StrategyDice:
		return "dice"
	case StrategyDigits:
		return "digits"
	default:
		return "unknown"
	}
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "empty":
		return StrategyEmpty, nil
	case "raw":
		return StrategyRaw, nil
	case "dice":
		return StrategyDice, nil
	case "digits":
		return StrategyDigits, nil
	default:
		return StrategyEmpty, fmt.Errorf("unknown scaling strategy %q", s)
	}
}

// ScaleOptions selects the output mapping.
type ScaleOptions struct {
	// Dice is the target die size. Zero disables dice scaling.
	Dice int
	// Raw emits unscaled counts and takes precedence over Dice.
	Raw bool
}

// Cumulative is a follower with the upper bound of its roll range.
type Cumulative struct {
	Word  string
	Value int
}

// ScaledEntry is an entry ready for output. Total is the largest roll value
// (the die size, the digit-range maximum, or the raw total).
type ScaledEntry struct {
	Prefix    []string
	Total     int
	Followers []Cumulative
	Strategy  Strategy
}

// Key returns the prefix words joined by single spaces.
func (s ScaledEntry) Key() string {
	return Entry{Prefix: s.Prefix}.Key()
}

// ScaleEntry maps an entry's cumulative counts according to opts. Dice scaling
// is tried first when a die size is set and there are no more followers than
// faces; if it cannot keep every value distinct the digit range is used instead.
func ScaleEntry(e Entry, opts ScaleOptions) ScaledEntry {
	total := e.Total()
	if total == 0 {
		return ScaledEntry{Prefix: e.Prefix, Strategy: StrategyEmpty}
	}

	cum := e.Cumulative()
	build := func(values []int, top int, strategy Strategy) ScaledEntry {
		followers := make([]Cumulative, len(values))
		for i, v := range values {
			followers[i] = Cumulative{Word: e.Followers[i].Word, Value: v}
		}
		return ScaledEntry{Prefix: e.Prefix, Total: top, Followers: followers, Strategy: strategy}
	}

	if opts.Raw {
		return build(cum, total, StrategyRaw)
	}
	if opts.Dice > 0 && len(cum) <= opts.Dice {
		if values, ok := DiceScale(cum, total, opts.Dice); ok {
			return build(values, opts.Dice, StrategyDice)
		}
	}
	values, top := DigitScale(cum, total)
	return build(values, top, StrategyDigits)
}

// ScaleEntries applies ScaleEntry to every entry, preserving order.
func ScaleEntries(entries []Entry, opts ScaleOptions) []ScaledEntry {
	scaled := make([]ScaledEntry, len(entries))
	for i, e := range entries {
		scaled[i] = ScaleEntry(e, opts)
	}
	return scaled
}

// DiceScale maps cumulative counts onto [1, d]. Every value but the last is
// ceil(c*d/total) raised to one above its predecessor and capped at d; the last
// is d. The result is strictly increasing; ok is false when that cannot hold.
func DiceScale(cum []int, total, d int) ([]int, bool) {
	if d <= 0 || total <= 0 || len(cum) == 0 || len(cum) > d {
		return nil, false
	}

	values := make([]int, len(cum))
	prev := 0
	for i, c := range cum {
		v := d
		if i < len(cum)-1 {
			v = (c*d + total - 1) / total
			v = max(v, prev+1)
			v = min(v, d)
		}
		if v <= prev {
			return nil, false
		}
		values[i] = v
		prev = v
	}
	return values, true
}

// DigitScale maps cumulative counts onto [0, M], where M = 10^k-1 and k is the
// number of decimal digits in total. Values are rounded half up, so ties are
// possible when counts are very uneven. total must be below 10^18.
func DigitScale(cum []int, total int) ([]int, int) {
	if total <= 0 {
		return make([]int, len(cum)), 0
	}

	m := 9
	for t := total; t >= 10; t /= 10 {
		m = m*10 + 9
	}

	values := make([]int, len(cum))
	for i, c := range cum {
		values[i] = roundedRatio(c, m, total)
	}
	return values, m
}

// roundedRatio returns c*m/total rounded half up. The product is taken in 128
// bits so large totals cannot overflow; 0 <= c <= total keeps the quotient
// within m.
func roundedRatio(c, m, total int) int {
	hi, lo := bits.Mul64(uint64(2*c), uint64(m))
	lo, carry := bits.Add64(lo, uint64(total), 0)
	q, _ := bits.Div64(hi+carry, lo, uint64(2*total))
	return int(q)
}
