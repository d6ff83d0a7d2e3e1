package assist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/profile"
)

// Heuristic proposes join-key candidates locally, without the reasoning
// service: columns whose normalized names match across datasets are grouped,
// scored by coverage and uniqueness, and ranked. It cannot run a semantic
// merge, and its plan/chat answers are canned text.
//
// The zero value is ready to use.
type Heuristic struct{}

var _ Advisor = Heuristic{}

// ProposeCandidates groups columns by normalized name across datasets and
// ranks groups that span at least two datasets.
//
// Score: (datasets covered / total datasets) × mean uniqueness of the member
// columns. ID-ish columns, unique where present, rank first. Ordering is
// fully deterministic: score descending, then key name ascending.
func (Heuristic) ProposeCandidates(_ context.Context, summaries []profile.Summary) ([]dataset.Candidate, error) {
	if len(summaries) < 2 {
		return nil, nil
	}

	groups := make(map[string][]member)
	order := []string{}

	for _, sum := range summaries {
		for _, col := range sum.Columns {
			norm := normalizeColumnName(col.Name)
			if norm == "" {
				continue
			}
			if _, seen := groups[norm]; !seen {
				order = append(order, norm)
			}
			// One column per dataset per group: first wins.
			if hasDataset(groups[norm], sum.Dataset) {
				continue
			}
			groups[norm] = append(groups[norm], member{dataset: sum.Dataset, col: col})
		}
	}

	var cands []dataset.Candidate
	for _, norm := range order {
		members := groups[norm]
		if len(members) < 2 {
			continue
		}

		mappings := make(map[string]string, len(members))
		uniq := 0.0
		for _, m := range members {
			mappings[m.dataset] = m.col.Name
			uniq += m.col.Uniqueness
		}
		uniq /= float64(len(members))
		coverage := float64(len(members)) / float64(len(summaries))

		cand := dataset.Candidate{
			KeyName:        members[0].col.Name,
			ColumnMappings: mappings,
			Confidence:     coverage * uniq,
			Reasoning: fmt.Sprintf("column %q appears in %d of %d datasets with mean uniqueness %.2f",
				members[0].col.Name, len(members), len(summaries), uniq),
		}
		if len(members) < len(summaries) {
			cand.Issues = append(cand.Issues,
				fmt.Sprintf("only %d of %d datasets carry this column", len(members), len(summaries)))
		}
		if uniq < 0.5 {
			cand.Issues = append(cand.Issues, "low uniqueness: expect many-to-many expansion")
		}
		cands = append(cands, cand)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Confidence == cands[j].Confidence {
			return cands[i].KeyName < cands[j].KeyName
		}
		return cands[i].Confidence > cands[j].Confidence
	})
	return cands, nil
}

// DraftPlan produces a deterministic textual plan from what the heuristic
// knows locally.
func (Heuristic) DraftPlan(_ context.Context, summaries []profile.Summary, cand dataset.Candidate) string {
	if cand.KeyName == "" || len(summaries) == 0 {
		return PlanFallback
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Join %d datasets on %q.", len(summaries), cand.KeyName)
	for _, sum := range summaries {
		col, ok := cand.ColumnMappings[sum.Dataset]
		if !ok {
			fmt.Fprintf(&b, " %s has no key mapping and will never match.", sum.Dataset)
			continue
		}
		fmt.Fprintf(&b, " %s joins via column %q (%d rows).", sum.Dataset, col, sum.RowCount)
	}
	return b.String()
}

// ExecuteSemanticMerge always fails: semantic merging needs the service.
func (Heuristic) ExecuteSemanticMerge(context.Context, []dataset.Dataset, dataset.Candidate) ([]join.Record, error) {
	return nil, ErrNoSemanticMerge
}

// Chat degrades to the canned fallback; the heuristic has no language model.
func (Heuristic) Chat(context.Context, string, []profile.Summary) string {
	return ChatFallback
}

// normalizeColumnName folds case and strips non-alphanumerics so
// "Customer ID", "customer_id" and "CustomerID" all group together.
func normalizeColumnName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// member is one column's membership in a normalized-name group.
type member struct {
	dataset string
	col     profile.Column
}

func hasDataset(members []member, name string) bool {
	for _, m := range members {
		if m.dataset == name {
			return true
		}
	}
	return false
}
