package usecase

import (
	"context"
	"sync"

	"ProposalLens/internal/domain"
)

// Phase is a step of an enrichment run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingList
	PhaseListReady
	PhaseSummarizing
	PhaseSummariesReady
	// PhaseDegraded is terminal: the list could not be obtained, the
	// proposal list is empty and summaries will never become ready.
	PhaseDegraded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingList:
		return "loading_list"
	case PhaseListReady:
		return "list_ready"
	case PhaseSummarizing:
		return "summarizing"
	case PhaseSummariesReady:
		return "summaries_ready"
	case PhaseDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// State is the observable result of one activation. The pipeline writes it;
// consumers read snapshots or wait on the readiness channels. A State is
// used for exactly one run.
type State struct {
	mu             sync.RWMutex
	phase          Phase
	proposals      []domain.Proposal
	proposalsReady bool
	summariesReady bool
	err            error

	listReadyCh chan struct{}
	summariesCh chan struct{}
	doneCh      chan struct{}
}

// NewState returns an idle state.
func NewState() *State {
	return &State{
		listReadyCh: make(chan struct{}),
		summariesCh: make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Phase reports the current phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Snapshot returns a deep copy of the consumer-facing state.
func (s *State) Snapshot() domain.PipelineState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proposals := make([]domain.Proposal, len(s.proposals))
	for i, p := range s.proposals {
		proposals[i] = p.Clone()
	}
	return domain.PipelineState{
		Proposals:      proposals,
		ProposalsReady: s.proposalsReady,
		SummariesReady: s.summariesReady,
	}
}

// ProposalsReady is closed once the list (possibly empty) is available.
func (s *State) ProposalsReady() <-chan struct{} {
	return s.listReadyCh
}

// SummariesReady is closed once every proposal has been processed. It is
// never closed for a degraded run.
func (s *State) SummariesReady() <-chan struct{} {
	return s.summariesCh
}

// Done is closed when the run stops, whether complete or degraded.
func (s *State) Done() <-chan struct{} {
	return s.doneCh
}

// Err returns the fetch failure of a degraded run.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Wait blocks until the run stops or ctx ends.
func (s *State) Wait(ctx context.Context) error {
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *State) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return false
	}
	s.phase = PhaseLoadingList
	return true
}

func (s *State) publishList(proposals []domain.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals = make([]domain.Proposal, len(proposals))
	for i, p := range proposals {
		s.proposals[i] = p.Clone()
	}
	s.proposalsReady = true
	s.phase = PhaseListReady
	close(s.listReadyCh)
}

func (s *State) startSummaries() {
	s.mu.Lock()
	s.phase = PhaseSummarizing
	s.mu.Unlock()
}

func (s *State) attach(index int, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.proposals) {
		return
	}
	s.proposals[index].Summary = &summary
}

func (s *State) markSummariesReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summariesReady = true
	s.phase = PhaseSummariesReady
	close(s.summariesCh)
}

func (s *State) degrade(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.proposals = []domain.Proposal{}
	s.proposalsReady = true
	s.phase = PhaseDegraded
	close(s.listReadyCh)
}

func (s *State) finish() {
	close(s.doneCh)
}
