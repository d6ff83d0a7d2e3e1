// Package assist models the external reasoning service as a narrow, typed
// boundary: propose join-key candidates, draft a merge plan, execute a
// semantic merge, and answer chat questions about the workspace.
//
// Everything the service returns is untrusted. Candidate shapes are decoded
// into the same types the engine uses, and every merged row is routed through
// join.SanitizeRecord before it re-enters the pipeline. The engine itself
// never calls this package; callers own resilience (retries, timeouts,
// cancellation) at this boundary.
package assist

import (
	"context"
	"errors"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/profile"
)

// ErrAdvisor wraps hard failures of the advisor service (discovery and
// semantic merge). Plan drafting and chat never fail; they degrade to a
// fallback message instead.
var ErrAdvisor = errors.New("advisor request failed")

// ErrNoSemanticMerge marks advisors that cannot run a semantic merge at all
// (the local heuristic).
var ErrNoSemanticMerge = errors.New("semantic merge is not available without an advisor service")

// PlanFallback is returned by DraftPlan when the service cannot produce a
// plan; callers present it verbatim rather than failing the flow.
const PlanFallback = "A merge plan could not be generated right now. You can still pick a join key and run the merge manually."

// ChatFallback is the degraded chat answer.
const ChatFallback = "A response could not be generated right now. Please try again."

// Advisor is the reasoning-service boundary.
//
// ProposeCandidates returns ranked join-key candidates for the profiled
// datasets. ExecuteSemanticMerge returns sanitized, engine-shaped records; a
// malformed service response (non-array, or array of non-objects) yields an
// empty result and a nil error, so callers present "produced nothing" instead
// of an exception. DraftPlan and Chat return human-readable text and degrade
// to the package fallbacks on any failure.
type Advisor interface {
	ProposeCandidates(ctx context.Context, summaries []profile.Summary) ([]dataset.Candidate, error)
	DraftPlan(ctx context.Context, summaries []profile.Summary, cand dataset.Candidate) string
	ExecuteSemanticMerge(ctx context.Context, datasets []dataset.Dataset, cand dataset.Candidate) ([]join.Record, error)
	Chat(ctx context.Context, question string, summaries []profile.Summary) string
}
