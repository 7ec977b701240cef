package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProposalLens/internal/view"
)

func TestThumbnailFromStdin(t *testing.T) {
	cmd := rootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("intro ![a](ipfs://QmCID) outro"))
	cmd.SetArgs([]string{"thumbnail", "-"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "https://snapshot.4everland.link/ipfs/QmCID\n", out.String())
}

func TestThumbnailFromFileWithPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.md")
	require.NoError(t, os.WriteFile(path, []byte("no images here"), 0o600))

	cmd := rootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"thumbnail", "--placeholder", "/logo.png", path})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/logo.png\n", out.String())
}

func TestThumbnailMissingFile(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"thumbnail", filepath.Join(t.TempDir(), "missing.md")})

	assert.Error(t, cmd.Execute())
}

func TestPurgeWithMemoryCache(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("PROPOSALLENS_CONFIG", "")

	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"cache", "purge", "--all"})
	assert.NoError(t, cmd.Execute())
}

func TestPrintCards(t *testing.T) {
	out := &bytes.Buffer{}
	printCards(out, nil)
	assert.Equal(t, "no proposals\n", out.String())

	out.Reset()
	printCards(out, []view.Card{{
		Title:        "Fund ramps",
		AuthorShort:  "0x1234...cdef",
		Choices:      []string{"Yes", "No"},
		Summary:      "Ramps.",
		SummaryReady: true,
		Thumbnail:    "/assets/skatehive-logo.png",
		VoteURL:      "https://snapshot.org/#/skatehive.eth/proposal/1",
	}})
	got := out.String()
	assert.Contains(t, got, "Fund ramps  [open] by 0x1234...cdef")
	assert.Contains(t, got, "summary: Ramps.")
	assert.Contains(t, got, "choices: Yes, No")
}
