package readygate

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the protocol used to check an [Endpoint].
type Kind string

const (
	// KindTCP endpoints pass when a TCP connection can be opened.
	KindTCP Kind = "tcp"

	// KindHTTP endpoints pass when a GET request returns a 2xx status.
	KindHTTP Kind = "http"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind converts "tcp" or "http" (any case) to a [Kind].
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return KindTCP, nil
	case "http", "https":
		return KindHTTP, nil
	default:
		return "", fmt.Errorf("unknown endpoint kind %q (want tcp or http)", s)
	}
}

// Endpoint is a single target to check before the gate opens.
//
// Endpoint is immutable after creation via [NewTCPEndpoint], [NewHTTPEndpoint]
// or [NewEndpoint]. Only empty targets are rejected at construction: a
// malformed address or URL is reported as a failed check on every iteration,
// the same way an unreachable one is.
type Endpoint struct {
	kind   Kind
	target string
}

// Kind returns the endpoint's protocol.
func (e Endpoint) Kind() Kind {
	return e.kind
}

// Target returns the host:port (TCP) or URL (HTTP) exactly as configured.
// A "tcp://" prefix on TCP targets is preserved here and stripped at check time.
func (e Endpoint) Target() string {
	return e.target
}

// String returns the target prefixed by its kind, e.g. "tcp db:5432".
func (e Endpoint) String() string {
	return string(e.kind) + " " + e.target
}

// NewTCPEndpoint creates a TCP [Endpoint] for a host:port address, optionally
// prefixed with "tcp://".
//
// Example:
//
//	db, err := readygate.NewTCPEndpoint("postgres:5432")
//
// Returns an error if the address is empty.
func NewTCPEndpoint(address string) (Endpoint, error) {
	return NewEndpoint(KindTCP, address)
}

// NewHTTPEndpoint creates an HTTP [Endpoint] for a full http:// or https:// URL.
//
// Example:
//
//	api, err := readygate.NewHTTPEndpoint("http://api:8080/healthz")
//
// Returns an error if the URL is empty.
func NewHTTPEndpoint(rawURL string) (Endpoint, error) {
	return NewEndpoint(KindHTTP, rawURL)
}

// NewEndpoint creates an [Endpoint] of the given kind.
// Surrounding whitespace is trimmed from target.
func NewEndpoint(kind Kind, target string) (Endpoint, error) {
	if kind != KindTCP && kind != KindHTTP {
		return Endpoint{}, fmt.Errorf("unknown endpoint kind %q", kind)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return Endpoint{}, errors.New(string(kind) + " endpoint target cannot be empty")
	}
	return Endpoint{kind: kind, target: target}, nil
}

// splitByKind returns the TCP and HTTP targets in their original order.
func splitByKind(endpoints []Endpoint) (tcp, http []string) {
	for _, ep := range endpoints {
		switch ep.kind {
		case KindTCP:
			tcp = append(tcp, ep.target)
		case KindHTTP:
			http = append(http, ep.target)
		}
	}
	return tcp, http
}

// dedupe drops repeated endpoints, keeping the first occurrence of each.
func dedupe(endpoints []Endpoint) []Endpoint {
	seen := make(map[Endpoint]bool, len(endpoints))
	result := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if seen[ep] {
			continue
		}
		seen[ep] = true
		result = append(result, ep)
	}
	return result
}
