// Package thumbnail derives a card image URL from proposal markdown.
package thumbnail

import (
	"regexp"
	"strings"
)

const (
	ipfsScheme = "ipfs://"

	DefaultGateway     = "https://snapshot.4everland.link/ipfs/"
	DefaultPlaceholder = "/assets/skatehive-logo.png"
)

var imageExpr = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// Resolver rewrites IPFS links through Gateway and falls back to Placeholder.
type Resolver struct {
	Gateway     string
	Placeholder string
}

// NewResolver fills empty fields with the defaults.
func NewResolver(gateway, placeholder string) Resolver {
	if gateway == "" {
		gateway = DefaultGateway
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return Resolver{Gateway: gateway, Placeholder: placeholder}
}

// Resolve returns the URL of the first markdown image in body, or the
// placeholder when there is none.
func (r Resolver) Resolve(body string) string {
	match := imageExpr.FindStringSubmatch(body)
	if match == nil {
		return r.Placeholder
	}
	url := match[1]
	if strings.HasPrefix(url, ipfsScheme) {
		return r.Gateway + strings.TrimPrefix(url, ipfsScheme)
	}
	return url
}

// ResolveThumbnail resolves with the default gateway and placeholder.
func ResolveThumbnail(body string) string {
	return NewResolver("", "").Resolve(body)
}
