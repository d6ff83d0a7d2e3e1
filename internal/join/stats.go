package join

// EstimateStats computes the expected result row count for every computable
// join type from per-dataset key→count summaries alone, without running the
// join.
//
// For each key k, with counts(k)[i] the occurrence count in dataset i
// (0 when absent):
//
//	INNER    += Π counts(k)[i]            (any absent dataset zeroes the key)
//	OUTER    += Π max(counts(k)[i], 1)    (absent dataset = one null placeholder)
//	ADDITIVE  = OUTER by definition
//	LEFT     += counts(k)[0] · Π_{i>0} max(counts(k)[i], 1), only when
//	            dataset 0 has the key
//
// Duplicate keys multiply on every side, including against the placeholder.
// This deliberately departs from textbook relational counting and mirrors the
// executor's cartesian expansion exactly: for all inputs and every type,
// EstimateStats agrees with len(Execute(...)).
//
// Semantic has no entry; its cardinality is unknown until the advisor runs it.
func EstimateStats(perDataset []KeyCounts) Stats {
	stats := Stats{Inner: 0, Left: 0, Outer: 0, Additive: 0}

	for _, key := range allKeys(perDataset) {
		inner := 1
		padded := 1
		leftTail := 1

		for i, kc := range perDataset {
			n := kc.Counts[key]
			inner *= n
			if n < 1 {
				n = 1
			}
			padded *= n
			if i > 0 {
				leftTail *= n
			}
		}

		stats[Inner] += inner
		stats[Outer] += padded
		stats[Additive] += padded
		if len(perDataset) > 0 {
			if n := perDataset[0].Counts[key]; n > 0 {
				stats[Left] += n * leftTail
			}
		}
	}

	return stats
}
