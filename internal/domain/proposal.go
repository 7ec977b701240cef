package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// ProposalsKey addresses the cached snapshot of the fetched proposal list.
const ProposalsKey = "proposals"

const summaryKeyPrefix = "summary:"

// ProposalState is the ballot status reported by the governance hub.
type ProposalState string

const (
	StateOpen   ProposalState = "open"
	StateClosed ProposalState = "closed"
)

// Closed reports whether voting has ended. Anything other than "closed"
// (including "pending") is treated as open.
func (s ProposalState) Closed() bool {
	return s == StateClosed
}

// Proposal is a governance ballot item as fetched from the hub.
// Body is markdown and doubles as the summary cache key material, so a
// proposal must not be mutated after it has been fetched.
type Proposal struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Body    string        `json:"body"`
	Author  string        `json:"author"`
	State   ProposalState `json:"state"`
	Choices []string      `json:"choices"`
	Summary *string       `json:"summary,omitempty"`
}

// HasSummary reports whether a summary has been attached.
func (p Proposal) HasSummary() bool {
	return p.Summary != nil
}

// SummaryText returns the attached summary or an empty string.
func (p Proposal) SummaryText() string {
	if p.Summary == nil {
		return ""
	}
	return *p.Summary
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p Proposal) Clone() Proposal {
	out := p
	if p.Choices != nil {
		out.Choices = append([]string(nil), p.Choices...)
	}
	if p.Summary != nil {
		s := *p.Summary
		out.Summary = &s
	}
	return out
}

// ProposalBatch is the result of a single remote fetch. Raw holds the
// proposals array exactly as the hub returned it.
type ProposalBatch struct {
	Proposals []Proposal
	Raw       []byte
}

// PipelineState is the consumer-facing view of an enrichment run.
type PipelineState struct {
	Proposals      []Proposal
	ProposalsReady bool
	SummariesReady bool
}

// SummaryKey derives the cache key for a body's summary from a SHA-256
// fingerprint of the exact body text.
func SummaryKey(body string) string {
	sum := sha256.Sum256([]byte(body))
	return summaryKeyPrefix + hex.EncodeToString(sum[:])
}
