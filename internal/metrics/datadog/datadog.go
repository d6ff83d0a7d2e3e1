// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// Merge jobs are usually short-lived commands, but workspace sessions can
// run long, so the backend buffers in memory, flushes on a ticker, and
// flushes one final time on Close. Pipeline goroutines write under a mutex;
// Flush snapshots and resets the buffers under the lock, then submits out of
// it. If the process dies without Close, the tail window is lost; no
// backend can fix that.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"datamerge/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options configures the Datadog backend.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "datamerge".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// Defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production never sets them; tests inject
	// them to avoid real clocks, tickers, and network submission.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK the backend
// needs. The concrete *datadogV2.MetricsApi satisfies it; tests inject a
// fake to stay off the network.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api ctxSubmitter

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu       sync.Mutex
	counters map[string]float64   // "name|k:v,k:v" -> value
	samples  map[string][]float64 // "name|k:v,k:v" -> observations
}

// ctxSubmitter binds a submitter to the context carrying Datadog auth.
type ctxSubmitter struct {
	api metricsSubmitter
	ctx context.Context
}

// ParseTagsCSV splits a comma-separated tag list ("env:prod,team:data") into
// Datadog tags, dropping empty entries.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client and
// starts its flush loop. Datadog credentials come from the standard DD_*
// environment variables; network errors surface from Flush, not from here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "datamerge"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        ctxSubmitter{api: submitter, ctx: dd.NewDefaultContext(parent)},
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   make(map[string]float64),
		samples:    make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Call exactly
// once at shutdown.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := bufferKey(name, labels)

	b.mu.Lock()
	b.counters[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	k := bufferKey(name, labels)

	b.mu.Lock()
	b.samples[k] = append(b.samples[k], value)
	b.mu.Unlock()
}

// snapshot detaches the buffered state so payload building and submission
// happen out of lock.
type snapshot struct {
	counters map[string]float64
	samples  map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{counters: b.counters, samples: b.samples}
	b.counters = make(map[string]float64)
	b.samples = make(map[string][]float64)
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.counters) == 0 && len(s.samples) == 0
}

// Flush submits buffered metrics and resets the buffers. Buffers reset even
// when submission fails: dropping a window is preferable to blocking merge
// work behind a sad network.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.api.SubmitMetrics(b.api.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries converts a snapshot into Datadog series at a fixed timestamp.
// Counters submit as COUNT; sample sets submit avg/p50/p95/max gauges. Pure:
// no locks, clocks, or network, so it unit-tests deterministically.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	mk := func(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   typ.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.counters)+4*len(s.samples))

	for _, k := range sortedKeys(s.counters) {
		name, tags := splitBufferKey(k)
		series = append(series, mk(metricName(name), datadogV2.METRICINTAKETYPE_COUNT, s.counters[k], append(tags, b.baseTags...)))
	}

	for _, k := range sortedKeysSlice(s.samples) {
		name, tags := splitBufferKey(k)
		obs := append([]float64(nil), s.samples[k]...)
		sort.Float64s(obs)

		full := metricName(name)
		allTags := append(tags, b.baseTags...)
		series = append(series,
			mk(full+".avg", datadogV2.METRICINTAKETYPE_GAUGE, mean(obs), allTags),
			mk(full+".p50", datadogV2.METRICINTAKETYPE_GAUGE, percentile(obs, 0.50), allTags),
			mk(full+".p95", datadogV2.METRICINTAKETYPE_GAUGE, percentile(obs, 0.95), allTags),
			mk(full+".max", datadogV2.METRICINTAKETYPE_GAUGE, obs[len(obs)-1], allTags),
		)
	}

	return series
}

// metricName maps internal snake_case names to Datadog dot form:
// merge_runs_total -> datamerge.merge.runs_total is too lossy, so the rule
// is a plain prefix: "datamerge." + name.
func metricName(name string) string {
	return "datamerge." + name
}

// bufferKey folds a metric name and its labels into one map key with a
// deterministic label order.
func bufferKey(name string, labels metrics.Labels) string {
	if len(labels) == 0 {
		return name + "|"
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('|')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(labels[k])
	}
	return sb.String()
}

func splitBufferKey(k string) (name string, tags []string) {
	name, rest, _ := strings.Cut(k, "|")
	if rest == "" {
		return name, nil
	}
	return name, strings.Split(rest, ",")
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysSlice(m map[string][]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mean(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// percentile takes the nearest-rank percentile of an ascending sample set.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(p*float64(len(sorted))+0.5) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}
