package service

import (
	"cardhub/config"
	"cardhub/helper"
	"cardhub/lib"
	"context"
	"errors"
	"fmt"
	"time"

	"go.elastic.co/apm"
)

// FailureKind classifies why an activation attempt did not succeed.
type FailureKind string

const (
	FailureTransport     FailureKind = "transport"
	FailureRejection     FailureKind = "rejection"
	FailureInconsistency FailureKind = "inconsistency"
	FailurePersistence   FailureKind = "persistence"
	FailureInFlight      FailureKind = "in_flight"
	FailurePanic         FailureKind = "panic"
)

const msgActivated = "activation succeeded"

// Outcome is the result of one orchestration attempt.
type Outcome struct {
	Succeeded bool
	Info      *CardInfo
	Message   string
	Kind      lib.IssuerKind
	Failure   FailureKind
	// Permanent rejections cannot succeed on retry.
	Permanent bool
	Fallback  bool
}

func failed(kind lib.IssuerKind, failure FailureKind, message string) Outcome {
	return Outcome{
		Kind:      kind,
		Failure:   failure,
		Message:   message,
		Permanent: failure == FailureRejection && helper.IsPermanentRejection(message),
	}
}

// RawRecorder keeps issuer payloads for audit.
type RawRecorder interface {
	Record(ctx context.Context, issuer, code string, succeeded bool, response map[string]interface{}) error
}

// Activator runs classify → adapter → normalize for a single code. It never
// retries; callers own the retry policy.
type Activator struct {
	Registry   lib.Registry
	Normalizer *Normalizer
	Guard      InflightGuard
	Recorder   RawRecorder
	Metrics    *ActivationMetrics
}

func NewActivator(registry lib.Registry, normalizer *Normalizer) *Activator {
	return &Activator{Registry: registry, Normalizer: normalizer}
}

func (a *Activator) ActivateIfNeeded(ctx context.Context, code string) Outcome {
	span, ctx := apm.StartSpan(ctx, "ActivateIfNeeded", "service")
	defer span.End()

	classification := lib.ClassifyDetail(code)
	kind := classification.Kind
	if classification.Fallback {
		helper.Info("[Activator] code %s matched no issuer pattern, using %s", code, kind)
	}

	adapter, err := a.Registry.Lookup(kind)
	if err != nil {
		return failed(kind, FailureTransport, err.Error())
	}

	if a.Guard != nil {
		acquired, err := a.Guard.Acquire(ctx, code)
		if err != nil {
			helper.Warn("[Activator] in-flight guard unavailable for %s: %v", code, err)
		} else if !acquired {
			return failed(kind, FailureInFlight, fmt.Sprintf("activation of %s already in progress", code))
		} else {
			defer a.Guard.Release(context.Background(), code)
		}
	}

	start := time.Now()
	raw := adapter.Activate(ctx, code)
	outcome := a.interpret(raw, kind)
	outcome.Fallback = classification.Fallback

	a.Metrics.Observe(kind, outcome, time.Since(start))
	a.record(ctx, kind, code, outcome.Succeeded, raw)

	issuerLog := helper.NewIssuerHelpers(string(kind))
	if outcome.Succeeded {
		issuerLog.LogActivationSuccess(code, outcome.Info.PAN)
	} else if outcome.Failure == FailureInconsistency {
		config.LogWarn(string(kind), "Success without card data", config.LogEntry{Code: code, Error: outcome.Message})
	}

	return outcome
}

func (a *Activator) interpret(raw lib.RawResponse, kind lib.IssuerKind) Outcome {
	if raw == nil {
		return failed(kind, FailureTransport, "empty issuer response")
	}

	if msg := raw.ErrorMessage(); !raw.Success() || msg != "" {
		if msg == "" {
			msg = "activation failed"
		}
		if raw.Transport() {
			return failed(kind, FailureTransport, msg)
		}
		return failed(kind, FailureRejection, msg)
	}

	info, err := a.Normalizer.Normalize(raw, kind)
	if err != nil {
		if errors.Is(err, ErrMissingPAN) {
			return failed(kind, FailureInconsistency, err.Error())
		}
		return failed(kind, FailureInconsistency, fmt.Sprintf("cannot normalize issuer response: %v", err))
	}

	return Outcome{
		Succeeded: true,
		Info:      &info,
		Message:   msgActivated,
		Kind:      kind,
	}
}

func (a *Activator) record(ctx context.Context, kind lib.IssuerKind, code string, succeeded bool, raw lib.RawResponse) {
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.Record(ctx, string(kind), code, succeeded, raw); err != nil {
		helper.Warn("[Activator] raw response for %s not recorded: %v", code, err)
	}
}

// Query reads card state from issuers that support a side-effect-free lookup.
func (a *Activator) Query(ctx context.Context, code string) (CardInfo, lib.IssuerKind, error) {
	kind := lib.Classify(code)
	adapter, err := a.Registry.Lookup(kind)
	if err != nil {
		return CardInfo{}, kind, err
	}
	querier, ok := adapter.(lib.Querier)
	if !ok {
		return CardInfo{}, kind, ErrQueryUnsupported
	}

	raw := querier.Query(ctx, code)
	a.record(ctx, kind, code, raw.Success(), raw)
	if msg := raw.ErrorMessage(); !raw.Success() && msg != "" {
		return CardInfo{}, kind, errors.New(msg)
	}
	info, err := a.Normalizer.Normalize(raw, kind)
	return info, kind, err
}

var ErrQueryUnsupported = errors.New("query not supported for this issuer")
