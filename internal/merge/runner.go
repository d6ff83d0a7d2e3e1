// Package merge orchestrates a whole job: load sources, resolve a join-key
// candidate, estimate, execute, write output, and record the run.
package merge

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"datamerge/internal/assist"
	"datamerge/internal/config"
	"datamerge/internal/dataset"
	"datamerge/internal/ingest"
	"datamerge/internal/join"
	"datamerge/internal/metrics"
	"datamerge/internal/output"
	"datamerge/internal/profile"
	"datamerge/internal/store"
)

// Logger is the minimal logging interface used by the runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner executes merge jobs. The function fields are factory seams; tests
// inject fakes, production uses NewDefaultRunner.
type Runner struct {
	Load          func(src config.Source) (dataset.Dataset, error)
	NewRepository func(ctx context.Context, cfg store.Config) (store.Repository, error)
	NewAdvisor    func(cfg *config.Assist) assist.Advisor

	// Stdout receives the merged result when output.path is empty.
	Stdout io.Writer

	Logger Logger

	now func() time.Time
}

func NewDefaultRunner() *Runner {
	return &Runner{
		Load:          ingest.Load,
		NewRepository: store.New,
		NewAdvisor:    NewAdvisor,
		Stdout:        os.Stdout,
		now:           time.Now,
	}
}

// NewAdvisor selects the advisor for a job: the HTTP client when an assist
// service is configured, the local heuristic otherwise.
func NewAdvisor(cfg *config.Assist) assist.Advisor {
	if cfg == nil || cfg.BaseURL == "" {
		return assist.Heuristic{}
	}
	var opts []assist.Option
	if cfg.Model != "" {
		opts = append(opts, assist.WithModel(cfg.Model))
	}
	if cfg.APIKeyEnv != "" {
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			opts = append(opts, assist.WithAPIKey(key))
		}
	}
	return assist.NewClient(cfg.BaseURL, opts...)
}

// Result is what a completed job produced.
type Result struct {
	Run       store.Run
	Candidate dataset.Candidate
	Header    []string
	Records   []join.Record
	Stats     join.Stats
}

// Run executes one job end to end.
func (r *Runner) Run(ctx context.Context, job config.Job) (*Result, error) {
	issues := config.Validate(job)
	if config.HasError(issues) {
		return nil, fmt.Errorf("invalid job config: %s", issueSummary(issues))
	}

	start := r.clock()()
	jt := join.Type(job.Join.Type)

	datasets, inputRows, err := r.loadSources(job.Sources)
	if err != nil {
		metrics.IncCounter(metrics.MergeRunsTotal, 1, metrics.Labels{"join_type": string(jt), "status": "error"})
		return nil, err
	}
	metrics.IncCounter(metrics.MergeRowsTotal, float64(inputRows), metrics.Labels{"kind": "input"})

	advisor := r.NewAdvisor(job.Assist)

	cand, err := r.resolveCandidate(ctx, job, datasets, advisor)
	if err != nil {
		metrics.IncCounter(metrics.MergeRunsTotal, 1, metrics.Labels{"join_type": string(jt), "status": "error"})
		return nil, err
	}
	r.logf("join key: %q (confidence %.2f)", cand.KeyName, cand.Confidence)

	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = ds.Name
	}
	run := store.NewRun(jobName(job), jt, cand.KeyName, names)

	var (
		records   []join.Record
		truncated int
		stats     join.Stats
	)
	if jt == join.Semantic {
		records, err = advisor.ExecuteSemanticMerge(ctx, datasets, cand)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter(metrics.AdvisorRequestsTotal, 1, metrics.Labels{"op": "merge", "status": status})
		if err != nil {
			metrics.IncCounter(metrics.MergeRunsTotal, 1, metrics.Labels{"join_type": string(jt), "status": "error"})
			return nil, fmt.Errorf("semantic merge: %w", err)
		}
	} else {
		stats = join.Estimate(datasets, cand)
		r.logf("estimates: inner=%d left=%d outer=%d additive=%d",
			stats[join.Inner], stats[join.Left], stats[join.Outer], stats[join.Additive])
		records, truncated = join.ExecuteCapped(datasets, cand, jt, job.Join.PerKeyCap)
	}

	header := join.Header(records, datasets, cand, jt)

	if err := r.writeOutput(job.Output, header, records); err != nil {
		metrics.IncCounter(metrics.MergeRunsTotal, 1, metrics.Labels{"join_type": string(jt), "status": "error"})
		return nil, err
	}

	run.Stats = stats
	run.RowCount = len(records)
	run.Truncated = truncated
	run.OutputPath = job.Output.Path
	run.Duration = r.clock()().Sub(start)

	metrics.IncCounter(metrics.MergeRunsTotal, 1, metrics.Labels{"join_type": string(jt), "status": "ok"})
	metrics.IncCounter(metrics.MergeRowsTotal, float64(len(records)), metrics.Labels{"kind": "output"})
	if truncated > 0 {
		metrics.IncCounter(metrics.MergeRowsTotal, float64(truncated), metrics.Labels{"kind": "truncated"})
	}
	metrics.ObserveHistogram(metrics.MergeRunDurationSeconds, run.Duration.Seconds(), metrics.Labels{"join_type": string(jt)})

	if job.Storage != nil {
		if err := r.persist(ctx, *job.Storage, run, datasets); err != nil {
			return nil, err
		}
	}

	r.logf("merged %d records in %s (truncated %d)", len(records), run.Duration.Truncate(time.Millisecond), truncated)

	return &Result{
		Run:       run,
		Candidate: cand,
		Header:    header,
		Records:   records,
		Stats:     stats,
	}, nil
}

func (r *Runner) loadSources(sources []config.Source) ([]dataset.Dataset, int, error) {
	datasets := make([]dataset.Dataset, 0, len(sources))
	rows := 0
	for _, src := range sources {
		ds, err := r.Load(src)
		if err != nil {
			return nil, 0, fmt.Errorf("load %s: %w", src.EffectiveName(), err)
		}
		r.logf("loaded %s: %d rows, %d columns", ds.Name, len(ds.Rows), len(ds.Columns))
		rows += len(ds.Rows)
		datasets = append(datasets, ds)
	}
	return datasets, rows, nil
}

// resolveCandidate builds the candidate from explicit config mappings, or
// asks the advisor to propose one when the job does not pin a key.
func (r *Runner) resolveCandidate(ctx context.Context, job config.Job, datasets []dataset.Dataset, advisor assist.Advisor) (dataset.Candidate, error) {
	if len(job.Join.Mappings) > 0 {
		// Validate guarantees KeyName is set alongside mappings.
		return dataset.Candidate{KeyName: job.Join.KeyName, ColumnMappings: job.Join.Mappings}, nil
	}

	summaries := profile.DescribeAll(datasets)
	cands, err := advisor.ProposeCandidates(ctx, summaries)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IncCounter(metrics.AdvisorRequestsTotal, 1, metrics.Labels{"op": "candidates", "status": status})
	if err != nil {
		return dataset.Candidate{}, fmt.Errorf("propose candidates: %w", err)
	}
	if len(cands) == 0 {
		return dataset.Candidate{}, fmt.Errorf("no join key candidate found; set join.mappings in the job config")
	}
	return cands[0], nil
}

func (r *Runner) writeOutput(out config.Output, header []string, records []join.Record) error {
	w := r.Stdout
	if out.Path != "" {
		f, err := os.Create(out.Path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if w == nil {
		return nil
	}

	var formatter output.Formatter
	switch out.Format {
	case "", "csv":
		formatter = output.NewCSVFormatter(w)
	case "jsonl":
		formatter = output.NewJSONLFormatter(w)
	default:
		return fmt.Errorf("unsupported output.format=%s", out.Format)
	}
	if err := formatter.Format(header, records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// persist records the run and upserts the input datasets so the workspace
// can be reloaded later.
func (r *Runner) persist(ctx context.Context, cfg config.Storage, run store.Run, datasets []dataset.Dataset) error {
	repo, err := r.NewRepository(ctx, store.Config{Kind: cfg.Kind, DSN: os.ExpandEnv(cfg.DSN)})
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer repo.Close()

	if err := repo.Init(ctx); err != nil {
		return fmt.Errorf("init run store: %w", err)
	}
	for _, ds := range datasets {
		if err := repo.SaveDataset(ctx, ds); err != nil {
			return fmt.Errorf("save dataset %s: %w", ds.Name, err)
		}
	}
	if err := repo.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	r.logf("run %s recorded (%s)", run.ID, cfg.Kind)
	return nil
}

func (r *Runner) clock() func() time.Time {
	if r.now != nil {
		return r.now
	}
	return time.Now
}

func (r *Runner) logf(format string, v ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, v...)
	}
}

func jobName(job config.Job) string {
	if job.Name != "" {
		return job.Name
	}
	return "datamerge"
}

func issueSummary(issues []config.Issue) string {
	var parts []string
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			parts = append(parts, fmt.Sprintf("%s: %s", iss.Path, iss.Message))
		}
	}
	return strings.Join(parts, "; ")
}
