package service

import (
	"cardhub/config"
	"cardhub/lib"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func testNormalizer() *Normalizer {
	return &Normalizer{
		Addresses: map[lib.IssuerKind]config.Address{
			lib.KindMercury: config.DefaultUSAddress,
			lib.KindVocard:  config.BoltonAddress,
		},
		Now: func() time.Time { return fixedNow },
	}
}

func TestNormalizeMercuryResponse(t *testing.T) {
	raw := lib.RawResponse{
		"success": true,
		"card": map[string]interface{}{
			"pan":          "5236860118604513",
			"cvv":          "689",
			"exp_month":    "2",
			"exp_year":     "2031",
			"card_limit":   float64(25),
			"created_time": "2025-03-01T09:59:00Z",
		},
		"expire_minutes": float64(120),
	}

	info, err := testNormalizer().Normalize(raw, lib.KindMercury)
	require.NoError(t, err)

	assert.Equal(t, "5236860118604513", info.PAN)
	assert.Equal(t, "689", info.CVC)
	assert.Equal(t, "02/31", info.ExpDisplay)
	assert.Equal(t, "02", info.ExpMonth)
	assert.Equal(t, "31", info.ExpYear)
	assert.Equal(t, "41 Glenn Rd C23, East Hartford, CT, 06118, US", info.BillingAddress)
	assert.Equal(t, "Card 4513", info.Nickname)
	assert.True(t, decimal.NewFromInt(25).Equal(info.Limit))
	assert.Equal(t, StatusActivated, info.StatusText)
	assert.Equal(t, "2025-03-01T17:59:00+08:00", info.CreationTime.String())
	require.NotNil(t, info.ValidityHours)
	assert.Equal(t, 2.0, *info.ValidityHours)
}

func TestNormalizeExpireMinutesAnchorsToNow(t *testing.T) {
	raw := lib.RawResponse{
		"success":        true,
		"card":           map[string]interface{}{"pan": "4111111111111111"},
		"expire_minutes": float64(120),
	}

	info, err := testNormalizer().Normalize(raw, lib.KindMercury)
	require.NoError(t, err)

	expires := info.ExpirationTime.Parsed()
	require.NotNil(t, expires)
	assert.True(t, fixedNow.Add(120*time.Minute).Equal(*expires))
	_, offset := expires.Zone()
	assert.Equal(t, 8*60*60, offset)
	assert.Equal(t, "2025-03-01T20:00:00+08:00", info.ExpirationTime.String())
}

func TestNormalizePrefersAbsoluteExpiry(t *testing.T) {
	raw := lib.RawResponse{
		"success": true,
		"card": map[string]interface{}{
			"pan":         "4111111111111111",
			"expire_time": "2025-03-02T00:00:00Z",
		},
		"expire_minutes": float64(120),
	}

	info, err := testNormalizer().Normalize(raw, lib.KindMercury)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02T08:00:00+08:00", info.ExpirationTime.String())
}

func TestNormalizeMalformedTimestampPassesThrough(t *testing.T) {
	raw := lib.RawResponse{
		"success": true,
		"card": map[string]interface{}{
			"pan":          "4111111111111111",
			"expire_time":  "next tuesday",
			"created_time": "soon",
		},
	}

	info, err := testNormalizer().Normalize(raw, lib.KindMercury)
	require.NoError(t, err)
	assert.Equal(t, "next tuesday", info.ExpirationTime.String())
	assert.Nil(t, info.ExpirationTime.Parsed())
	assert.Equal(t, "soon", info.CreationTime.String())
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		kind lib.IssuerKind
		card map[string]interface{}
		want string
	}{
		{
			name: "structured address",
			kind: lib.KindMercury,
			card: map[string]interface{}{"legal_address": config.FairburnAddress.AsMap()},
			want: "8280 Mayfern Drive, Fairburn, GA, 30213, US",
		},
		{
			name: "empty parts skipped",
			kind: lib.KindMercury,
			card: map[string]interface{}{"billing_address": map[string]interface{}{"city": "Leeds", "country": "UK", "region": ""}},
			want: "Leeds, UK",
		},
		{
			name: "issuer default",
			kind: lib.KindVocard,
			card: map[string]interface{}{},
			want: config.BoltonAddress.Line(),
		},
		{
			name: "unregistered kind",
			kind: lib.KindLCard,
			card: map[string]interface{}{},
			want: config.DefaultUSAddress.Line(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.card["pan"] = "4111111111111111"
			info, err := testNormalizer().Normalize(lib.RawResponse{"success": true, "card": tt.card}, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.BillingAddress)
		})
	}
}

func TestNormalizeAliases(t *testing.T) {
	viaAliases := lib.RawResponse{
		"success": true,
		"data": map[string]interface{}{
			"card_number":    "4111 1111 1111 1111",
			"card_cvc":       "123",
			"card_exp_date":  "7/2030",
			"nickname":       "travel",
			"limit":          "$50.00",
			"validity_hours": "24",
		},
	}

	info, err := testNormalizer().Normalize(viaAliases, lib.KindMercury)
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111", info.PAN)
	assert.Equal(t, "123", info.CVC)
	assert.Equal(t, "07/30", info.ExpDisplay)
	assert.Equal(t, "travel", info.Nickname)
	assert.True(t, decimal.NewFromInt(50).Equal(info.Limit))
	require.NotNil(t, info.ValidityHours)
	assert.Equal(t, 24.0, *info.ValidityHours)
}

func TestNormalizeIsIdempotentOnCanonicalKeys(t *testing.T) {
	n := testNormalizer()
	raw := lib.RawResponse{
		"success": true,
		"card": map[string]interface{}{
			"pan":           "5236860118604513",
			"cvv":           "689",
			"exp_month":     "12",
			"exp_year":      "2031",
			"card_limit":    float64(10),
			"created_time":  float64(1740823200),
			"legal_address": config.LondonAddress.AsMap(),
		},
		"expire_minutes": float64(90),
	}

	first, err := n.Normalize(raw, lib.KindHoly)
	require.NoError(t, err)
	second, err := n.Normalize(first.Canonical(), lib.KindHoly)
	require.NoError(t, err)

	assert.Equal(t, first.PAN, second.PAN)
	assert.Equal(t, first.CVC, second.CVC)
	assert.Equal(t, first.ExpDisplay, second.ExpDisplay)
	assert.Equal(t, first.BillingAddress, second.BillingAddress)
	assert.Equal(t, first.Nickname, second.Nickname)
	assert.True(t, first.Limit.Equal(second.Limit))
	assert.Equal(t, first.StatusText, second.StatusText)
	assert.Equal(t, first.CreationTime.String(), second.CreationTime.String())
	assert.Equal(t, first.ExpirationTime.String(), second.ExpirationTime.String())
	assert.Equal(t, *first.ValidityHours, *second.ValidityHours)
}

func TestNormalizeAppliesIssuerValidityPolicy(t *testing.T) {
	n := testNormalizer()
	n.Validity = map[lib.IssuerKind]float64{lib.KindHoly: 48}

	tests := []struct {
		name        string
		card        map[string]interface{}
		kind        lib.IssuerKind
		wantHours   *float64
		wantExpires string
	}{
		{
			name:        "policy from now",
			card:        map[string]interface{}{"pan": "4111111111111111"},
			kind:        lib.KindHoly,
			wantHours:   floatPtr(48),
			wantExpires: "2025-03-03T18:00:00+08:00",
		},
		{
			name:        "policy from creation time",
			card:        map[string]interface{}{"pan": "4111111111111111", "created_time": "2025-02-28T00:00:00Z"},
			kind:        lib.KindHoly,
			wantHours:   floatPtr(48),
			wantExpires: "2025-03-02T08:00:00+08:00",
		},
		{
			name:        "issuer hours win",
			card:        map[string]interface{}{"pan": "4111111111111111", "validity_hours": float64(6)},
			kind:        lib.KindHoly,
			wantHours:   floatPtr(6),
			wantExpires: "",
		},
		{
			name:        "no policy for issuer",
			card:        map[string]interface{}{"pan": "4111111111111111"},
			kind:        lib.KindMercury,
			wantHours:   nil,
			wantExpires: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := n.Normalize(lib.RawResponse{"success": true, "card": tt.card}, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, info.ValidityHours)
			assert.Equal(t, tt.wantExpires, info.ExpirationTime.String())
		})
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestNormalizeStatusInvariant(t *testing.T) {
	n := testNormalizer()

	_, err := n.Normalize(lib.RawResponse{"success": true, "card": map[string]interface{}{"cvv": "123"}}, lib.KindMercury)
	assert.ErrorIs(t, err, ErrMissingPAN)

	_, err = n.Normalize(lib.RawResponse{"success": true, "card": map[string]interface{}{"pan": "4111-ABCD-1111-1111"}}, lib.KindMercury)
	assert.ErrorIs(t, err, ErrInvalidPAN)
	assert.NotContains(t, err.Error(), "4111ABCD11111111")

	info, err := n.Normalize(lib.RawResponse{"success": false, "card": map[string]interface{}{"pan": "4111111111111111"}}, lib.KindMercury)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, info.StatusText)
	assert.False(t, info.Activated())
}
