package readygate

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"text/template"
)

// NewEndpointGrid creates multiple endpoints of one kind from a target
// template and dimensions using cartesian product expansion.
//
// The template uses Go's text/template syntax. For [KindHTTP] grids,
// dimension values are URL-encoded before interpolation; [KindTCP] values are
// used as-is. Missing template keys cause an error (fail-fast).
//
// Endpoints are returned in a deterministic order: dimension keys are sorted
// alphabetically and the rightmost key varies fastest.
//
// Example:
//
//	endpoints, err := NewEndpointGrid(KindHTTP,
//	    WithTemplate("http://{{.svc}}.{{.ns}}.svc:8080/ready"),
//	    WithDimensions(map[string][]string{
//	        "svc": {"users", "orders"},
//	        "ns":  {"prod"},
//	    }),
//	)
//	// Returns 2 endpoints, usable with WithEndpoints(endpoints...)
func NewEndpointGrid(kind Kind, opts ...GridOption) ([]Endpoint, error) {
	if kind != KindTCP && kind != KindHTTP {
		return nil, fmt.Errorf("unknown endpoint kind %q", kind)
	}

	cfg := &gridConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// validate required fields
	if cfg.template == "" {
		return nil, errors.New("target template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// parse template with missingkey=error for fail-fast behaviour
	tmpl, err := template.New("target").Option("missingkey=error").Parse(cfg.template)
	if err != nil {
		return nil, fmt.Errorf("invalid target template: %w", err)
	}

	targets, err := renderTargets(tmpl, cfg.dimensions, escaperFor(kind))
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(targets))
	for _, target := range targets {
		ep, err := NewEndpoint(kind, target)
		if err != nil {
			return nil, fmt.Errorf("failed to create endpoint from template: %w", err)
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// escaperFor returns how dimension values are escaped for kind. HTTP values
// land in URLs and are query-escaped; TCP values are host names and ports.
func escaperFor(kind Kind) func(string) string {
	if kind == KindHTTP {
		return url.QueryEscape
	}
	return func(v string) string { return v }
}

// renderTargets executes tmpl once per combination of dimension values.
//
// Combination n is decoded as a mixed-radix number over the sorted keys, so
// the last key varies fastest and values keep their slice order. Any
// dimension without values yields no targets.
func renderTargets(tmpl *template.Template, dims map[string][]string, escape func(string) string) ([]string, error) {
	keys := slices.Sorted(maps.Keys(dims))
	if len(keys) == 0 {
		return nil, nil
	}

	total := 1
	for _, k := range keys {
		total *= len(dims[k])
	}

	targets := make([]string, 0, total)
	data := make(map[string]string, len(keys))
	var buf strings.Builder
	for n := 0; n < total; n++ {
		rest := n
		for i := len(keys) - 1; i >= 0; i-- {
			values := dims[keys[i]]
			data[keys[i]] = escape(values[rest%len(values)])
			rest /= len(values)
		}

		buf.Reset()
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}
		targets = append(targets, buf.String())
	}

	return targets, nil
}
