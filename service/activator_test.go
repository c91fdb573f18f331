package service

import (
	"cardhub/lib"
	"cardhub/service/servicetest"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRaw struct {
	issuer, code string
	succeeded    bool
}

type fakeRecorder struct {
	records []recordedRaw
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, issuer, code string, succeeded bool, _ map[string]interface{}) error {
	f.records = append(f.records, recordedRaw{issuer, code, succeeded})
	return f.err
}

func newTestActivator(respond func(code string, call int) lib.RawResponse) (*Activator, *servicetest.FakeAdapter) {
	adapter := &servicetest.FakeAdapter{IssuerKind: lib.KindMercury, Respond: respond}
	return NewActivator(lib.NewRegistry(adapter), testNormalizer()), adapter
}

func TestActivateIfNeeded(t *testing.T) {
	tests := []struct {
		name      string
		raw       lib.RawResponse
		succeeded bool
		failure   FailureKind
		permanent bool
		message   string
	}{
		{
			name:      "success with pan",
			raw:       servicetest.ActivatedResponse("5236860118604513"),
			succeeded: true,
			message:   msgActivated,
		},
		{
			name:    "success without pan",
			raw:     lib.RawResponse{"success": true, "card": map[string]interface{}{"cvv": "123"}},
			failure: FailureInconsistency,
			message: ErrMissingPAN.Error(),
		},
		{
			name:    "retryable rejection",
			raw:     lib.RawResponse{"success": false, "error": "卡密未使用"},
			failure: FailureRejection,
			message: "卡密未使用",
		},
		{
			name:      "permanent rejection",
			raw:       lib.RawResponse{"success": false, "error": "Key already used"},
			failure:   FailureRejection,
			permanent: true,
			message:   "Key already used",
		},
		{
			name:    "error field overrides success flag",
			raw:     lib.RawResponse{"success": true, "error": "quota exceeded", "card": map[string]interface{}{"pan": "4111111111111111"}},
			failure: FailureRejection,
			message: "quota exceeded",
		},
		{
			name:    "transport failure",
			raw:     lib.TransportFailure("activation failed: network error: %s", "timeout"),
			failure: FailureTransport,
			message: "activation failed: network error: timeout",
		},
		{
			name:    "failure without message",
			raw:     lib.RawResponse{"success": false},
			failure: FailureRejection,
			message: "activation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activator, _ := newTestActivator(func(string, int) lib.RawResponse { return tt.raw })

			outcome := activator.ActivateIfNeeded(context.Background(), "3f2b8c1e-9a4d-4e8b-a1f2-0c9d8e7f6a5b")

			assert.Equal(t, tt.succeeded, outcome.Succeeded)
			assert.Equal(t, tt.failure, outcome.Failure)
			assert.Equal(t, tt.permanent, outcome.Permanent)
			assert.Equal(t, tt.message, outcome.Message)
			assert.Equal(t, lib.KindMercury, outcome.Kind)
			if tt.succeeded {
				require.NotNil(t, outcome.Info)
				assert.Equal(t, StatusActivated, outcome.Info.StatusText)
			} else {
				assert.Nil(t, outcome.Info)
			}
		})
	}
}

func TestActivateIfNeededMissingAdapter(t *testing.T) {
	activator, adapter := newTestActivator(nil)

	outcome := activator.ActivateIfNeeded(context.Background(), "LR-ABCD1234")

	assert.False(t, outcome.Succeeded)
	assert.Equal(t, lib.KindVocard, outcome.Kind)
	assert.Equal(t, 0, adapter.Total())
}

func TestActivateIfNeededFallbackFlag(t *testing.T) {
	activator, _ := newTestActivator(func(string, int) lib.RawResponse {
		return servicetest.ActivatedResponse("4111111111111111")
	})

	assert.True(t, activator.ActivateIfNeeded(context.Background(), "plain-code").Fallback)
	assert.False(t, activator.ActivateIfNeeded(context.Background(), "mio-3f2b8c1e-9a4d-4e8b-a1f2-0c9d8e7f6a5b").Fallback)
}

func TestActivateIfNeededRecordsRawResponse(t *testing.T) {
	activator, _ := newTestActivator(func(string, int) lib.RawResponse {
		return servicetest.ActivatedResponse("4111111111111111")
	})
	recorder := &fakeRecorder{err: errors.New("mongo down")}
	activator.Recorder = recorder

	outcome := activator.ActivateIfNeeded(context.Background(), "code-1")

	assert.True(t, outcome.Succeeded, "recorder errors must not fail activation")
	assert.Equal(t, []recordedRaw{{"mercury", "code-1", true}}, recorder.records)
}

func TestActivateIfNeededInflightGuard(t *testing.T) {
	activator, adapter := newTestActivator(func(string, int) lib.RawResponse {
		return servicetest.ActivatedResponse("4111111111111111")
	})
	guard := NewMemoryInflightGuard(0)
	activator.Guard = guard

	held, err := guard.Acquire(context.Background(), "code-1")
	require.NoError(t, err)
	require.True(t, held)

	outcome := activator.ActivateIfNeeded(context.Background(), "code-1")
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, FailureInFlight, outcome.Failure)
	assert.Equal(t, 0, adapter.Total())

	guard.Release(context.Background(), "code-1")
	assert.True(t, activator.ActivateIfNeeded(context.Background(), "code-1").Succeeded)

	// released after the call
	again, _ := guard.Acquire(context.Background(), "code-1")
	assert.True(t, again)
}

type queryAdapter struct {
	servicetest.FakeAdapter
	query lib.RawResponse
}

func (q *queryAdapter) Query(context.Context, string) lib.RawResponse {
	return q.query
}

func TestActivatorQuery(t *testing.T) {
	adapter := &queryAdapter{
		FakeAdapter: servicetest.FakeAdapter{IssuerKind: lib.KindLCard},
		query:       servicetest.ActivatedResponse("4111111111111111"),
	}
	activator := NewActivator(lib.NewRegistry(adapter), testNormalizer())

	info, kind, err := activator.Query(context.Background(), "K9X2M-L")
	require.NoError(t, err)
	assert.Equal(t, lib.KindLCard, kind)
	assert.Equal(t, "4111111111111111", info.PAN)

	mercury, _ := newTestActivator(nil)
	_, _, err = mercury.Query(context.Background(), "plain")
	assert.ErrorIs(t, err, ErrQueryUnsupported)
}
