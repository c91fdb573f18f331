package lib

import (
	"cardhub/config"
	"context"
	"fmt"
	"net/http"
	"sort"
)

// IssuerKind names the backend that can redeem a code. It is always derived
// from the code with Classify and never stored.
type IssuerKind string

const (
	KindMercury IssuerKind = config.ISSUER_MERCURY
	KindHoly    IssuerKind = config.ISSUER_HOLY
	KindLCard   IssuerKind = config.ISSUER_LCARD
	KindVocard  IssuerKind = config.ISSUER_VOCARD
)

// AllKinds lists every issuer in classification priority order.
var AllKinds = []IssuerKind{KindHoly, KindLCard, KindVocard, KindMercury}

func (k IssuerKind) String() string {
	return string(k)
}

// RawResponse is the untyped payload an adapter returns. Transport problems
// are folded into it as {"success": false, "error": "..."}.
type RawResponse map[string]interface{}

// Failure builds a structured failure payload.
func Failure(format string, args ...interface{}) RawResponse {
	return RawResponse{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
	}
}

// TransportFailure marks a failure that never reached a usable issuer answer.
func TransportFailure(format string, args ...interface{}) RawResponse {
	raw := Failure(format, args...)
	raw["transport_error"] = true
	return raw
}

// Transport reports whether the failure came from the network or the wire format.
func (r RawResponse) Transport() bool {
	v, _ := r["transport_error"].(bool)
	return v
}

// Success reports the issuer's own success indicator.
func (r RawResponse) Success() bool {
	switch v := r["success"].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case float64:
		return v == 1
	case int:
		return v == 1
	}
	return false
}

// ErrorMessage returns the issuer's error text, or "" when no error field is set.
func (r RawResponse) ErrorMessage() string {
	switch v := r["error"].(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"message", "msg", "detail"} {
			if msg, ok := v[key].(string); ok && msg != "" {
				return msg
			}
		}
		return fmt.Sprintf("%v", v)
	case bool:
		if !v {
			return ""
		}
		return "issuer reported an error"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Card returns the nested card object, or the response itself when there is none.
func (r RawResponse) Card() map[string]interface{} {
	for _, key := range []string{"card", "data"} {
		if card, ok := r[key].(map[string]interface{}); ok {
			return card
		}
		if card, ok := r[key].(RawResponse); ok {
			return card
		}
	}
	return r
}

// Adapter speaks one issuer's wire protocol.
type Adapter interface {
	Kind() IssuerKind
	Activate(ctx context.Context, code string) RawResponse
}

// Querier is implemented by adapters that can read a code's state without
// consuming it.
type Querier interface {
	Query(ctx context.Context, code string) RawResponse
}

// Registry maps an issuer kind to the adapter that handles it.
type Registry map[IssuerKind]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	registry := make(Registry, len(adapters))
	for _, adapter := range adapters {
		registry[adapter.Kind()] = adapter
	}
	return registry
}

// DefaultRegistry wires every configured issuer over one shared client.
func DefaultRegistry(client *http.Client) Registry {
	if client == nil {
		client = &http.Client{Timeout: config.MustIssuerConfig(config.ISSUER_MERCURY).Timeout}
	}
	return NewRegistry(
		NewMercuryAdapter(config.MustIssuerConfig(config.ISSUER_MERCURY), client),
		NewHolyAdapter(config.MustIssuerConfig(config.ISSUER_HOLY), client),
		NewLCardAdapter(config.MustIssuerConfig(config.ISSUER_LCARD), client),
		NewVocardAdapter(config.MustIssuerConfig(config.ISSUER_VOCARD), client),
	)
}

func (r Registry) Lookup(kind IssuerKind) (Adapter, error) {
	adapter, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for issuer %s", kind)
	}
	return adapter, nil
}

func (r Registry) Kinds() []string {
	kinds := make([]string, 0, len(r))
	for kind := range r {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return kinds
}
