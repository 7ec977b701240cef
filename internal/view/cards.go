// Package view derives display cards from an enrichment run.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ProposalLens/internal/domain"
	"ProposalLens/internal/thumbnail"
)

const (
	// DefaultVoteBaseURL prefixes space/proposal/id to form a ballot link.
	DefaultVoteBaseURL = "https://snapshot.org/#/"

	excerptLimit = 280
)

// Card is a render-ready proposal.
type Card struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	State        string   `json:"state"`
	Closed       bool     `json:"closed"`
	Author       string   `json:"author"`
	AuthorShort  string   `json:"authorShort"`
	Thumbnail    string   `json:"thumbnail"`
	Excerpt      string   `json:"excerpt"`
	Choices      []string `json:"choices"`
	VoteURL      string   `json:"voteUrl"`
	Summary      string   `json:"summary,omitempty"`
	SummaryReady bool     `json:"summaryReady"`
}

// Builder turns pipeline snapshots into cards.
type Builder struct {
	Resolver    thumbnail.Resolver
	Space       string
	VoteBaseURL string
}

// NewBuilder fills an empty vote base with DefaultVoteBaseURL.
func NewBuilder(resolver thumbnail.Resolver, space, voteBaseURL string) Builder {
	if voteBaseURL == "" {
		voteBaseURL = DefaultVoteBaseURL
	}
	return Builder{Resolver: resolver, Space: space, VoteBaseURL: voteBaseURL}
}

// Cards builds one card per proposal in list order. Summaries are shown only
// once the whole run has reached summaries-ready.
func (b Builder) Cards(state domain.PipelineState) []Card {
	cards := make([]Card, 0, len(state.Proposals))
	for _, p := range state.Proposals {
		card := Card{
			ID:          p.ID,
			Title:       p.Title,
			State:       string(p.State),
			Closed:      p.State.Closed(),
			Author:      p.Author,
			AuthorShort: ShortenAuthor(p.Author),
			Thumbnail:   b.Resolver.Resolve(p.Body),
			Excerpt:     Excerpt(p.Body, excerptLimit),
			Choices:     SortedChoices(p.Choices),
			VoteURL:     b.voteURL(p.ID),
		}
		if state.SummariesReady && p.HasSummary() {
			card.Summary = p.SummaryText()
			card.SummaryReady = true
		}
		cards = append(cards, card)
	}
	return cards
}

func (b Builder) voteURL(id string) string {
	return fmt.Sprintf("%s%s/proposal/%s", b.VoteBaseURL, b.Space, id)
}

// ShortenAuthor renders an address as its first 6 and last 4 characters.
func ShortenAuthor(author string) string {
	runes := []rune(author)
	if len(runes) <= 10 {
		return author
	}
	return string(runes[:6]) + "..." + string(runes[len(runes)-4:])
}

// SortedChoices returns a descending copy of choices.
func SortedChoices(choices []string) []string {
	out := append([]string(nil), choices...)
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Excerpt strips inline HTML from a markdown body, collapses whitespace and
// truncates to limit runes.
func Excerpt(body string, limit int) string {
	text := body
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// Digest renders open proposals as a Telegram Markdown message. It returns
// an empty string when nothing is open.
func Digest(cards []Card) string {
	var open []Card
	for _, c := range cards {
		if !c.Closed {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Open proposals (%d)*\n\n", len(open))
	for i, c := range open {
		fmt.Fprintf(&sb, "%d. *%s* by %s\n", i+1, c.Title, c.AuthorShort)
		if c.SummaryReady {
			sb.WriteString(c.Summary)
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[Vote](%s)\n\n", c.VoteURL)
	}
	return strings.TrimRight(sb.String(), "\n")
}
