package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"datamerge/internal/dataset"
	"datamerge/internal/profile"
)

func heuristicSummaries() []profile.Summary {
	return []profile.Summary{
		{
			Dataset:  "customers.csv",
			RowCount: 5,
			Columns: []profile.Column{
				{Name: "Customer ID", Kind: "integer", NonNull: 5, Distinct: 5, Uniqueness: 1.0},
				{Name: "Country", Kind: "text", NonNull: 5, Distinct: 2, Uniqueness: 0.4},
			},
		},
		{
			Dataset:  "orders.csv",
			RowCount: 6,
			Columns: []profile.Column{
				{Name: "customer_id", Kind: "integer", NonNull: 6, Distinct: 4, Uniqueness: 0.66},
				{Name: "Total", Kind: "float", NonNull: 6, Distinct: 6, Uniqueness: 1.0},
			},
		},
		{
			Dataset:  "returns.csv",
			RowCount: 2,
			Columns: []profile.Column{
				{Name: "CustomerId", Kind: "integer", NonNull: 2, Distinct: 2, Uniqueness: 1.0},
				{Name: "Country", Kind: "text", NonNull: 2, Distinct: 2, Uniqueness: 1.0},
			},
		},
	}
}

func TestHeuristicProposeCandidates(t *testing.T) {
	t.Parallel()

	cands, err := Heuristic{}.ProposeCandidates(context.Background(), heuristicSummaries())
	if err != nil {
		t.Fatalf("ProposeCandidates: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2 (customer id and country)", len(cands))
	}

	// "Customer ID" / "customer_id" / "CustomerId" group despite spelling.
	top := cands[0]
	if top.KeyName != "Customer ID" {
		t.Fatalf("top candidate = %q, want Customer ID", top.KeyName)
	}
	if top.ColumnMappings["orders.csv"] != "customer_id" || top.ColumnMappings["returns.csv"] != "CustomerId" {
		t.Fatalf("mappings = %v", top.ColumnMappings)
	}
	// Full coverage, no coverage issue.
	for _, iss := range top.Issues {
		if strings.Contains(iss, "datasets carry") {
			t.Errorf("unexpected coverage issue: %v", top.Issues)
		}
	}

	// Country spans only 2 of 3 datasets and gets flagged.
	country := cands[1]
	if country.KeyName != "Country" {
		t.Fatalf("second candidate = %q", country.KeyName)
	}
	if len(country.Issues) == 0 {
		t.Error("country candidate should carry a coverage issue")
	}
	if country.Confidence >= top.Confidence {
		t.Errorf("country confidence %f must rank below customer id %f", country.Confidence, top.Confidence)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	t.Parallel()

	a, _ := Heuristic{}.ProposeCandidates(context.Background(), heuristicSummaries())
	b, _ := Heuristic{}.ProposeCandidates(context.Background(), heuristicSummaries())
	if len(a) != len(b) {
		t.Fatal("nondeterministic candidate count")
	}
	for i := range a {
		if a[i].KeyName != b[i].KeyName || a[i].Confidence != b[i].Confidence {
			t.Fatalf("candidate %d differs across runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestHeuristicTooFewDatasets(t *testing.T) {
	t.Parallel()

	cands, err := Heuristic{}.ProposeCandidates(context.Background(), heuristicSummaries()[:1])
	if err != nil || cands != nil {
		t.Fatalf("single dataset: cands=%v err=%v, want none", cands, err)
	}
}

func TestHeuristicSemanticMergeUnavailable(t *testing.T) {
	t.Parallel()

	_, err := Heuristic{}.ExecuteSemanticMerge(context.Background(), nil, dataset.Candidate{})
	if !errors.Is(err, ErrNoSemanticMerge) {
		t.Fatalf("err = %v", err)
	}
}

func TestHeuristicPlanAndChat(t *testing.T) {
	t.Parallel()

	sums := heuristicSummaries()
	cand := dataset.Candidate{
		KeyName: "Customer ID",
		ColumnMappings: map[string]string{
			"customers.csv": "Customer ID",
			"orders.csv":    "customer_id",
		},
	}
	plan := Heuristic{}.DraftPlan(context.Background(), sums, cand)
	if !strings.Contains(plan, "Customer ID") || !strings.Contains(plan, "returns.csv has no key mapping") {
		t.Errorf("plan = %q", plan)
	}
	if (Heuristic{}).DraftPlan(context.Background(), nil, dataset.Candidate{}) != PlanFallback {
		t.Error("empty inputs must fall back")
	}
	if (Heuristic{}).Chat(context.Background(), "hi", sums) != ChatFallback {
		t.Error("heuristic chat must return the fallback")
	}
}
