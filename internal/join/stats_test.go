package join

import "testing"

// Counts for the customers/orders fixture (see executor_test.go):
// customers has 101..105 once each; orders has 101×2, 102×1, 103×2, 999×1.
func fixtureCounts() []KeyCounts {
	return []KeyCounts{
		{
			Keys:   []string{"101", "102", "103", "104", "105"},
			Counts: map[string]int{"101": 1, "102": 1, "103": 1, "104": 1, "105": 1},
		},
		{
			Keys:   []string{"101", "102", "103", "999"},
			Counts: map[string]int{"101": 2, "102": 1, "103": 2, "999": 1},
		},
	}
}

func TestEstimateStats(t *testing.T) {
	t.Parallel()

	stats := EstimateStats(fixtureCounts())

	// INNER: 2+1+2 (104, 105, 999 each have a zero side).
	// LEFT:  2+1+2+1+1 (999 absent from dataset 0, excluded).
	// OUTER/ADDITIVE: 2+1+2+1+1+1 (placeholders for 104, 105 and 999).
	want := Stats{Inner: 5, Left: 7, Outer: 8, Additive: 8}
	for jt, n := range want {
		if stats[jt] != n {
			t.Errorf("stats[%s] = %d, want %d", jt, stats[jt], n)
		}
	}
	if _, ok := stats[Semantic]; ok {
		t.Error("semantic must not be estimated")
	}
}

// Duplicate keys multiply on both sides, placeholder included. 2 rows × 3
// rows of the same key yield 6 inner combinations, and a dataset missing the
// key contributes a single virtual placeholder, not an exclusion.
func TestEstimateStatsCartesianArithmetic(t *testing.T) {
	t.Parallel()

	perDataset := []KeyCounts{
		{Keys: []string{"k"}, Counts: map[string]int{"k": 2}},
		{Keys: []string{"k"}, Counts: map[string]int{"k": 3}},
		{Keys: []string{"q"}, Counts: map[string]int{"q": 4}},
	}
	stats := EstimateStats(perDataset)

	if stats[Inner] != 0 {
		t.Errorf("inner = %d, want 0 (no key present everywhere)", stats[Inner])
	}
	// k: 2*3*1 = 6, q: 1*1*4 = 4.
	if stats[Outer] != 10 {
		t.Errorf("outer = %d, want 10", stats[Outer])
	}
	if stats[Additive] != stats[Outer] {
		t.Errorf("additive = %d, must equal outer = %d", stats[Additive], stats[Outer])
	}
	// k only: dataset 0 has it twice, tail max(3,1)*max(0,1) = 3.
	if stats[Left] != 6 {
		t.Errorf("left = %d, want 6", stats[Left])
	}
}

func TestEstimateStatsEmpty(t *testing.T) {
	t.Parallel()

	stats := EstimateStats(nil)
	for _, jt := range []Type{Inner, Left, Outer, Additive} {
		if stats[jt] != 0 {
			t.Errorf("stats[%s] = %d, want 0", jt, stats[jt])
		}
	}
}
