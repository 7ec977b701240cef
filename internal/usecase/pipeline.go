package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"ProposalLens/internal/domain"
	"ProposalLens/internal/logging"
	"ProposalLens/internal/metrics"
	"ProposalLens/internal/ports"
)

// PipelineDeps wires all driven adapters into the enrichment pipeline.
type PipelineDeps struct {
	Source     ports.ProposalSource
	Cache      ports.Cache
	Summarizer ports.Summarizer
	Metrics    *metrics.Pipeline
	Logger     *slog.Logger
}

// Pipeline loads the proposal list cache-first and enriches every proposal
// with a memoized summary.
type Pipeline struct {
	source     ports.ProposalSource
	cache      ports.Cache
	summarizer ports.Summarizer
	metrics    *metrics.Pipeline
	logger     *slog.Logger

	// Held around check-generate-persist so overlapping runs never have two
	// completion calls in flight and the second run sees the first's write.
	summaryGate *semaphore.Weighted
}

type summaryJob struct {
	index int
	id    string
	body  string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		source:      deps.Source,
		cache:       deps.Cache,
		summarizer:  deps.Summarizer,
		metrics:     deps.Metrics,
		logger:      logger,
		summaryGate: semaphore.NewWeighted(1),
	}
}

// Activate starts a run in the background and returns its state right away.
// The run is detached from ctx cancellation: a consumer that stops watching
// does not stop in-flight work.
func (p *Pipeline) Activate(ctx context.Context) *State {
	st := NewState()
	go p.Run(context.WithoutCancel(ctx), st)
	return st
}

// Run executes one activation synchronously against st, which must be idle.
// Failures are logged and reflected in st; nothing is returned.
func (p *Pipeline) Run(ctx context.Context, st *State) {
	if !st.begin() {
		p.logger.Warn("pipeline state already used, skipping run", "phase", st.Phase().String())
		return
	}

	log := p.logger.With("run_id", uuid.NewString())
	started := time.Now()
	defer func() {
		p.metrics.ObserveActivation(time.Since(started))
		st.finish()
	}()

	proposals, err := p.loadProposals(ctx, log)
	if err != nil {
		log.Error("proposal list unavailable, halting", "error", err)
		st.degrade(err)
		return
	}
	st.publishList(proposals)
	log.Info("proposals ready", "count", len(proposals))

	st.startSummaries()
	p.summarizeAll(ctx, log, st, proposals)
	st.markSummariesReady()
	log.Info("summaries ready", "count", len(proposals), "elapsed", time.Since(started).String())
}

func (p *Pipeline) loadProposals(ctx context.Context, log *slog.Logger) ([]domain.Proposal, error) {
	if proposals, ok := p.cachedProposals(ctx, log); ok {
		log.Debug("proposal list served from cache", "count", len(proposals))
		return proposals, nil
	}

	if p.source == nil {
		p.metrics.FetchFailure()
		return nil, &domain.FetchError{Reason: "no proposal source configured"}
	}

	batch, err := p.source.Fetch(ctx)
	if err != nil {
		p.metrics.FetchFailure()
		return nil, err
	}

	proposals := batch.Proposals
	if proposals == nil {
		proposals = []domain.Proposal{}
	}

	raw := batch.Raw
	if len(raw) == 0 {
		if raw, err = json.Marshal(proposals); err != nil {
			log.Warn("encode proposal snapshot failed, not caching", "error", err)
			return proposals, nil
		}
	}
	p.cacheSet(ctx, log, domain.ProposalsKey, string(raw))

	return proposals, nil
}

func (p *Pipeline) cachedProposals(ctx context.Context, log *slog.Logger) ([]domain.Proposal, bool) {
	raw, found := p.cacheGet(ctx, log, domain.ProposalsKey, metrics.ClassProposals)
	if !found {
		return nil, false
	}

	var proposals []domain.Proposal
	if err := json.Unmarshal([]byte(raw), &proposals); err != nil {
		log.Warn("cached proposal list is undecodable, refetching", "error", err)
		return nil, false
	}
	if proposals == nil {
		proposals = []domain.Proposal{}
	}
	for i := range proposals {
		proposals[i].Summary = nil
	}
	return proposals, true
}

// summarizeAll drains a queue of jobs with a single worker, in source order.
func (p *Pipeline) summarizeAll(ctx context.Context, log *slog.Logger, st *State, proposals []domain.Proposal) {
	queue := make(chan summaryJob, len(proposals))
	for i, proposal := range proposals {
		queue <- summaryJob{index: i, id: proposal.ID, body: proposal.Body}
	}
	close(queue)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for job := range queue {
			p.enrich(ctx, log, st, job)
		}
	}()
	<-done
}

func (p *Pipeline) enrich(ctx context.Context, log *slog.Logger, st *State, job summaryJob) {
	if err := p.summaryGate.Acquire(ctx, 1); err != nil {
		log.Warn("summary skipped", "proposal", job.id, "error", err)
		return
	}
	defer p.summaryGate.Release(1)

	key := domain.SummaryKey(job.body)
	if cached, found := p.cacheGet(ctx, log, key, metrics.ClassSummary); found {
		st.attach(job.index, cached)
		return
	}

	if p.summarizer == nil {
		log.Debug("no summarizer configured, leaving summary absent", "proposal", job.id)
		return
	}

	p.metrics.SummaryCall()
	summary, err := p.safeSummarize(ctx, job.body)
	if err != nil {
		p.metrics.SummaryFailure()
		log.Warn("summarize proposal failed", "proposal", job.id, "error", err)
		return
	}

	p.cacheSet(ctx, log, key, summary)
	st.attach(job.index, summary)
	log.Debug("summary attached", "proposal", job.id)
}

func (p *Pipeline) safeSummarize(ctx context.Context, body string) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary = ""
			err = &domain.SummaryError{Reason: fmt.Sprintf("summarizer panic: %v", r)}
		}
	}()
	return p.summarizer.Summarize(ctx, body)
}

// cacheGet treats errors and empty values as misses.
func (p *Pipeline) cacheGet(ctx context.Context, log *slog.Logger, key, class string) (string, bool) {
	if p.cache == nil {
		p.metrics.CacheMiss(class)
		return "", false
	}

	value, found, err := p.cache.Get(ctx, key)
	if err != nil {
		p.metrics.CacheError("get")
		p.metrics.CacheMiss(class)
		log.Warn("cache read failed, treating as miss", "class", class, "error", err)
		return "", false
	}
	if !found || value == "" {
		p.metrics.CacheMiss(class)
		log.Debug("cache miss", "class", class)
		return "", false
	}

	p.metrics.CacheHit(class)
	log.Debug("cache hit", "class", class)
	return value, true
}

func (p *Pipeline) cacheSet(ctx context.Context, log *slog.Logger, key, value string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, value); err != nil {
		p.metrics.CacheError("set")
		log.Warn("cache write failed", "error", err)
	}
}
