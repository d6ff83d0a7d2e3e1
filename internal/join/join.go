// Package join implements the dataset join engine: key normalization and
// grouping, cardinality estimation for every join type without materializing
// the join, and the executor that produces the flat merged record set.
//
// The engine is synchronous and stateless. Every call receives its inputs and
// returns a fresh result; nothing is cached between invocations. Given
// well-formed datasets the engine has no failure path, so none of the core
// operations return an error.
package join

// Type selects the join semantics applied by the executor and reported by the
// estimator.
type Type string

const (
	// Inner keeps only key combinations present in every dataset.
	Inner Type = "inner"
	// Left keeps every row of the first dataset, with placeholders for
	// datasets that have no match.
	Left Type = "left"
	// Outer keeps the union of all keys, with placeholders on every side.
	Outer Type = "outer"
	// Additive is Outer plus match-provenance metadata columns
	// (_Join_Status and one _Found_In_<dataset> flag per dataset).
	Additive Type = "additive"
	// Semantic delegates matching to the external advisor service. The
	// engine never computes it; its row count is unknown until executed.
	Semantic Type = "semantic"
)

// Record is one flat output row: output column name → scalar value. Values
// are always join-safe scalars (string, number, bool, or nil); Sanitize
// guarantees this for every cell the executor emits.
type Record map[string]any

// Stats maps a join type to its estimated result row count. Semantic is never
// present (see Type).
type Stats map[Type]int

// StatusColumn is the additive-join provenance column.
const StatusColumn = "_Join_Status"

// FoundInPrefix prefixes the per-dataset additive membership flags. The full
// column name is FoundInPrefix + SanitizeName(dataset name).
const FoundInPrefix = "_Found_In_"
