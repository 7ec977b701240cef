package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ProposalLens/internal/domain"
	"ProposalLens/internal/ports"
)

// DefaultEndpoint is the public Snapshot hub.
const DefaultEndpoint = "https://hub.snapshot.org/graphql"

// ProposalsQuery is the fixed document sent on every fetch.
const ProposalsQuery = `query Proposals($space: String!, $first: Int!) {
  proposals(
    first: $first,
    skip: 0,
    where: { space_in: [$space] },
    orderBy: "created",
    orderDirection: desc
  ) {
    id
    title
    body
    choices
    start
    end
    snapshot
    state
    author
    space {
      id
      name
    }
  }
}`

// Client fetches governance proposals from a Snapshot GraphQL hub.
type Client struct {
	endpoint string
	space    string
	first    int
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.ProposalSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 20s timeout.
func NewClient(endpoint, space string, first int, client *http.Client, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if first <= 0 {
		first = 20
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		endpoint: endpoint,
		space:    space,
		first:    first,
		http:     client,
		logger:   logger,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data struct {
		Proposals json.RawMessage `json:"proposals"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Fetch posts ProposalsQuery and decodes the proposal list. Any transport
// failure, non-200 status or GraphQL error yields a *domain.FetchError and no
// proposals.
func (c *Client) Fetch(ctx context.Context) (domain.ProposalBatch, error) {
	body, err := json.Marshal(graphQLRequest{
		Query: ProposalsQuery,
		Variables: map[string]any{
			"space": c.space,
			"first": c.first,
		},
	})
	if err != nil {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "marshal query", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "new request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.debug("fetch proposals", "endpoint", c.endpoint, "space", c.space, "first", c.first)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "do request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ProposalBatch{}, &domain.FetchError{
			Reason: fmt.Sprintf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var decoded graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "decode response", Err: err}
	}

	if len(decoded.Errors) > 0 {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "graphql errors: " + joinMessages(decoded.Errors)}
	}

	raw := decoded.Data.Proposals
	if len(raw) == 0 || string(raw) == "null" {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "response carried no proposals"}
	}

	var proposals []domain.Proposal
	if err := json.Unmarshal(raw, &proposals); err != nil {
		return domain.ProposalBatch{}, &domain.FetchError{Reason: "decode proposals", Err: err}
	}

	c.debug("proposals fetched", "count", len(proposals))
	return domain.ProposalBatch{Proposals: proposals, Raw: []byte(raw)}, nil
}

func joinMessages(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
