package service

import (
	"cardhub/dto/model"
	"cardhub/lib"
	"cardhub/service/servicetest"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(respond func(code string, call int) lib.RawResponse) (*ActivationService, *servicetest.MemoryStore, *servicetest.MemoryLog, *servicetest.FakeAdapter) {
	activator, adapter := newTestActivator(respond)
	store := servicetest.NewMemoryStore()
	log := &servicetest.MemoryLog{}
	svc := NewActivationService(activator, store, log)
	svc.Now = func() time.Time { return fixedNow }
	return svc, store, log, adapter
}

func TestActivationServiceActivateCreatesAndSaves(t *testing.T) {
	svc, store, log, adapter := newTestService(func(string, int) lib.RawResponse {
		return servicetest.ActivatedResponse("5236860118604513")
	})

	result := svc.Activate(context.Background(), " code-1 ")

	require.True(t, result.Succeeded, result.Message)
	require.NotNil(t, result.Card)
	assert.Equal(t, 1, adapter.Calls("code-1"))

	card := store.Get("code-1")
	require.NotNil(t, card)
	assert.True(t, card.Activated())
	assert.Equal(t, "5236860118604513", card.CardNumber)
	assert.Equal(t, "12/31", card.ExpDate)
	assert.Equal(t, model.CardStatusActivated, card.Status)
	require.NotNil(t, card.ExpiresAt)
	assert.True(t, fixedNow.Add(2*time.Hour).Equal(*card.ExpiresAt))
	assert.Equal(t, 1, log.Count("code-1", model.ActivationLogSuccess))
}

func TestActivationServiceShortCircuitsActivatedCard(t *testing.T) {
	svc, store, log, adapter := newTestService(nil)
	store.Put(model.Card{Code: "code-1", CardNumber: "4111111111111111", IsActivated: true, ExpDate: "01/30"})

	result := svc.Activate(context.Background(), "code-1")

	assert.True(t, result.Succeeded)
	assert.Equal(t, "card already activated", result.Message)
	assert.Equal(t, "01", result.Info.ExpMonth)
	assert.Equal(t, 0, adapter.Total())
	assert.Empty(t, log.Entries)
}

func TestActivationServiceFailureIsLogged(t *testing.T) {
	svc, _, log, _ := newTestService(func(string, int) lib.RawResponse {
		return lib.RawResponse{"success": false, "error": "卡密未使用"}
	})

	result := svc.Activate(context.Background(), "code-1")

	assert.False(t, result.Succeeded)
	assert.Equal(t, "卡密未使用", result.Message)
	assert.Equal(t, FailureRejection, result.Failure)
	assert.Equal(t, 1, log.Count("code-1", model.ActivationLogFailed))
}

func TestActivationServiceRecoversAdapterPanic(t *testing.T) {
	svc, _, log, _ := newTestService(func(string, int) lib.RawResponse {
		panic("nil map write")
	})

	result := svc.Activate(context.Background(), "code-1")

	assert.False(t, result.Succeeded)
	assert.Equal(t, FailurePanic, result.Failure)
	assert.Contains(t, result.Message, "nil map write")
	assert.Equal(t, 1, log.Count("code-1", model.ActivationLogFailed))
}

func TestActivationServiceLogErrorsDoNotFailActivation(t *testing.T) {
	svc, _, log, _ := newTestService(func(string, int) lib.RawResponse {
		return servicetest.ActivatedResponse("5236860118604513")
	})
	log.Err = errors.New("db down")

	assert.True(t, svc.Activate(context.Background(), "code-1").Succeeded)
}

func TestSaveActivation(t *testing.T) {
	info := CardInfo{
		PAN:        "4111111111111111",
		CVC:        "123",
		ExpDisplay: "07/30",
		Nickname:   "Card 1111",
		Limit:      decimal.NewFromInt(5),
		StatusText: StatusActivated,
	}

	t.Run("existing record", func(t *testing.T) {
		store := servicetest.NewMemoryStore()
		store.Put(model.Card{Code: "c"})

		card, err := SaveActivation(context.Background(), store, "c", info, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, "4111111111111111", card.CardNumber)
		assert.Equal(t, 1, store.Upserts)
	})

	t.Run("missing record is created then retried once", func(t *testing.T) {
		store := servicetest.NewMemoryStore()

		card, err := SaveActivation(context.Background(), store, "c", info, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, "4111111111111111", card.CardNumber)
		assert.True(t, decimal.NewFromInt(5).Equal(card.Limit))
		assert.Equal(t, 2, store.Upserts)
	})

	t.Run("second miss surfaces", func(t *testing.T) {
		store := servicetest.NewMemoryStore()
		store.MissUpserts = 2

		_, err := SaveActivation(context.Background(), store, "c", info, fixedNow)
		assert.ErrorIs(t, err, ErrRecordMissing)
		assert.Equal(t, 2, store.Upserts)
	})

	t.Run("store error", func(t *testing.T) {
		store := servicetest.NewMemoryStore()
		store.UpsertErr = errors.New("deadlock")

		_, err := SaveActivation(context.Background(), store, "c", info, fixedNow)
		assert.EqualError(t, err, "deadlock")
	})
}

func TestActivationServiceQuery(t *testing.T) {
	adapter := &queryAdapter{
		FakeAdapter: servicetest.FakeAdapter{IssuerKind: lib.KindLCard},
		query: lib.RawResponse{
			"success":        true,
			"validity_hours": float64(24),
			"card":           map[string]interface{}{"pan": "4111111111111111", "cvv": "321"},
		},
	}
	store := servicetest.NewMemoryStore()
	svc := NewActivationService(NewActivator(lib.NewRegistry(adapter), testNormalizer()), store, &servicetest.MemoryLog{})

	_, err := svc.Query(context.Background(), "K9X2M-L")
	assert.ErrorIs(t, err, ErrCardNotFound)

	store.Put(model.Card{Code: "K9X2M-L"})
	card, err := svc.Query(context.Background(), "K9X2M-L")
	require.NoError(t, err)
	assert.Equal(t, "321", card.CVC)
	require.NotNil(t, card.ValidityHours)
	assert.Equal(t, 24.0, *card.ValidityHours)
}

func TestCardInfoFromRecord(t *testing.T) {
	activated := fixedNow
	info := CardInfoFromRecord(&model.Card{
		CardNumber:     "4111111111111111",
		IsActivated:    true,
		ExpDate:        "07/30",
		ActivationTime: &activated,
	})

	assert.Equal(t, StatusActivated, info.StatusText)
	assert.Equal(t, "07", info.ExpMonth)
	assert.Equal(t, "30", info.ExpYear)
	assert.Equal(t, "2025-03-01T18:00:00+08:00", info.CreationTime.String())
}
