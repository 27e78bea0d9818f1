package pricecache

import (
	"strings"

	"github.com/cleared-dev/pricesplit/internal/id"
)

// MatchKind describes how a requested bill ID was resolved.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
	MatchToken     MatchKind = "token"
)

// Resolver maps a requested ID to one of the cached keys. keys are sorted;
// resolvers return the first acceptable key so results are deterministic.
type Resolver interface {
	Resolve(query string, keys []string) (key string, kind MatchKind, ok bool)
}

// Chain tries each resolver in order and returns the first match.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(query string, keys []string) (string, MatchKind, bool) {
	for _, r := range c {
		if key, kind, ok := r.Resolve(query, keys); ok {
			return key, kind, true
		}
	}
	return "", "", false
}

// DefaultResolver is exact, then substring, then timestamp token.
func DefaultResolver(prefixes []string, minMatchLength int) Chain {
	return Chain{
		ExactResolver{},
		SubstringResolver{MinLength: minMatchLength},
		TokenResolver{Prefixes: prefixes},
	}
}

// ExactResolver matches identical keys only.
type ExactResolver struct{}

// Resolve implements Resolver.
func (ExactResolver) Resolve(query string, keys []string) (string, MatchKind, bool) {
	for _, k := range keys {
		if k == query {
			return k, MatchExact, true
		}
	}
	return "", "", false
}

// SubstringResolver matches a key that contains the query or is contained
// by it. The contained side must be at least MinLength bytes long; zero
// accepts any non-empty overlap.
//
// Short numeric IDs collide under this rule unless MinLength is raised.
type SubstringResolver struct {
	MinLength int
}

// Resolve implements Resolver.
func (r SubstringResolver) Resolve(query string, keys []string) (string, MatchKind, bool) {
	if query == "" {
		return "", "", false
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		var shared int
		switch {
		case strings.Contains(k, query):
			shared = len(query)
		case strings.Contains(query, k):
			shared = len(k)
		default:
			continue
		}
		if shared >= r.MinLength {
			return k, MatchSubstring, true
		}
	}
	return "", "", false
}

// TokenResolver matches IDs of the form <prefix>_<timestamp>... against any
// key containing the same timestamp token.
type TokenResolver struct {
	Prefixes []string
}

// Resolve implements Resolver.
func (r TokenResolver) Resolve(query string, keys []string) (string, MatchKind, bool) {
	token, ok := id.TimestampToken(query, r.Prefixes)
	if !ok {
		return "", "", false
	}
	for _, k := range keys {
		if strings.Contains(k, token) {
			return k, MatchToken, true
		}
	}
	return "", "", false
}
