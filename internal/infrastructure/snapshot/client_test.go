package snapshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProposalLens/internal/domain"
)

const proposalsPayload = `{"data":{"proposals":[
  {"id":"0xa1","title":"Fund the park","body":"![img](ipfs://cid1) Build ramps","choices":["Yes","No"],"state":"open","author":"0x1234567890abcdef","start":1700000000,"space":{"id":"skatehive.eth","name":"Skatehive"}},
  {"id":"0xb2","title":"Sunset the arcade","body":"Close it","choices":["For","Against","Abstain"],"state":"closed","author":"0xfedcba0987654321"}
]}}`

func TestClientFetch(t *testing.T) {
	t.Parallel()

	var got graphQLRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(proposalsPayload))
	}))
	defer server.Close()

	client := NewClient(server.URL, "skatehive.eth", 10, server.Client(), nil)
	batch, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ProposalsQuery, got.Query)
	assert.Equal(t, "skatehive.eth", got.Variables["space"])
	assert.EqualValues(t, 10, got.Variables["first"])

	require.Len(t, batch.Proposals, 2)
	first := batch.Proposals[0]
	assert.Equal(t, "0xa1", first.ID)
	assert.Equal(t, "Fund the park", first.Title)
	assert.Equal(t, domain.StateOpen, first.State)
	assert.Equal(t, []string{"Yes", "No"}, first.Choices)
	assert.False(t, first.HasSummary())
	assert.True(t, batch.Proposals[1].State.Closed())

	// Raw keeps fields the model does not decode.
	assert.Contains(t, string(batch.Raw), `"start":1700000000`)
	var roundTrip []domain.Proposal
	require.NoError(t, json.Unmarshal(batch.Raw, &roundTrip))
	assert.Equal(t, batch.Proposals, roundTrip)
}

func TestClientFetchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non-200 status", status: http.StatusBadGateway, body: "upstream down"},
		{name: "graphql errors", status: http.StatusOK, body: `{"data":null,"errors":[{"message":"space not found"}]}`},
		{name: "errors alongside data", status: http.StatusOK, body: `{"data":{"proposals":[]},"errors":[{"message":"partial"}]}`},
		{name: "malformed json", status: http.StatusOK, body: `{"data":`},
		{name: "missing proposals", status: http.StatusOK, body: `{"data":{}}`},
		{name: "null proposals", status: http.StatusOK, body: `{"data":{"proposals":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "skatehive.eth", 0, server.Client(), nil)
			batch, err := client.Fetch(context.Background())

			require.Error(t, err)
			assert.True(t, domain.IsFetchError(err), "got %T", err)
			assert.Empty(t, batch.Proposals)
			assert.Empty(t, batch.Raw)
		})
	}
}

func TestClientFetchEmptyList(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"proposals":[]}}`))
	}))
	defer server.Close()

	batch, err := NewClient(server.URL, "empty.eth", 5, server.Client(), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch.Proposals)
	assert.JSONEq(t, `[]`, string(batch.Raw))
}

func TestClientFetchTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "skatehive.eth", 5, nil, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsFetchError(err))
}
