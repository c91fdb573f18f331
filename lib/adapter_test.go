package lib

import (
	"cardhub/config"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.IssuerConfig {
	return config.IssuerConfig{
		URL:            url,
		Timeout:        5 * time.Second,
		DefaultAddress: config.DefaultUSAddress,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestMercuryAdapterActivate(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body MercuryRedeemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotKey = body.KeyID
		writeJSON(w, map[string]interface{}{
			"success":        true,
			"expire_minutes": 120,
			"card":           map[string]interface{}{"pan": "5236860118604513", "cvv": "689"},
		})
	}))
	defer srv.Close()

	raw := NewMercuryAdapter(testConfig(srv.URL), srv.Client()).Activate(context.Background(), "mio-abc 额度:0")

	assert.Equal(t, "mio-abc", gotKey)
	assert.True(t, raw.Success())
	assert.Equal(t, "5236860118604513", raw.Card()["pan"])
}

func TestMercuryAdapterTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	raw := NewMercuryAdapter(testConfig(url), http.DefaultClient).Activate(context.Background(), "key")

	assert.False(t, raw.Success())
	assert.True(t, raw.Transport())
	assert.Contains(t, raw.ErrorMessage(), "network error")
}

func TestMercuryAdapterUnreadableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	raw := NewMercuryAdapter(testConfig(srv.URL), srv.Client()).Activate(context.Background(), "key")

	assert.False(t, raw.Success())
	assert.True(t, raw.Transport())
	assert.Contains(t, raw.ErrorMessage(), "HTTP 502")
}

func TestHolyAdapterStripsSuffixAndInjectsProfile(t *testing.T) {
	tests := []struct {
		code        string
		wantKey     string
		wantAddress *config.Address
	}{
		{"KEY123-4866", "KEY123", &config.FairburnAddress},
		{"KEY123-44622", "KEY123", &config.LondonAddress},
		{"KEY123-Cursor", "KEY123", nil},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			var gotKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body HolyActivateRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				gotKey = body.LicenseKey
				writeJSON(w, map[string]interface{}{"success": true, "data": map[string]interface{}{"pan": "4111111111111111"}})
			}))
			defer srv.Close()

			raw := NewHolyAdapter(testConfig(srv.URL), srv.Client()).Activate(context.Background(), tt.code)

			assert.Equal(t, tt.wantKey, gotKey)
			assert.True(t, raw.Success())
			if tt.wantAddress == nil {
				assert.NotContains(t, raw, "legal_address")
			} else {
				assert.Equal(t, tt.wantAddress.AsMap(), raw["legal_address"])
			}
		})
	}
}

func TestLCardAdapterRedeemsUnusedKey(t *testing.T) {
	var actions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "K9X2M", r.URL.Query().Get("card_keys"))
		action := r.URL.Query().Get("action")
		actions = append(actions, action)
		if action == "query" {
			writeJSON(w, []interface{}{map[string]interface{}{"card_key": "K9X2M", "status_text": "未使用"}})
			return
		}
		writeJSON(w, map[string]interface{}{
			"success": true,
			"data": []interface{}{map[string]interface{}{
				"card_key":        "K9X2M",
				"status_text":     "已激活",
				"activation_code": "卡号: 5236860118604513 CVV: 123 日期: 7/29",
				"created_at":      "2025-01-02 03:04:05.000",
			}},
		})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.DefaultValidityHours = 24
	raw := NewLCardAdapter(cfg, srv.Client()).Activate(context.Background(), "K9X2M-L")

	assert.Equal(t, []string{"query", "activate"}, actions)
	require.True(t, raw.Success(), raw.ErrorMessage())
	card := raw.Card()
	assert.Equal(t, "5236860118604513", card["pan"])
	assert.Equal(t, "123", card["cvv"])
	assert.Equal(t, "07", card["exp_month"])
	assert.Equal(t, "2029", card["exp_year"])
	assert.Equal(t, "2025-01-02T15:04:05+08:00", card["created_time"])
	assert.Equal(t, "2025-01-03T15:04:05+08:00", card["expire_time"])
	assert.Equal(t, float64(24), raw["validity_hours"])
}

func TestLCardAdapterDoesNotRedeemActiveKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]interface{}{
			"results": []interface{}{map[string]interface{}{
				"card_key":        "K9X2M",
				"activation_code": "卡号: 5236860118604513 CVV: 123 日期: 12/30",
			}},
		})
	}))
	defer srv.Close()

	raw := NewLCardAdapter(testConfig(srv.URL), srv.Client()).Activate(context.Background(), "K9X2M-L")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, raw.Success())
}

func TestLCardAdapterReturnsQueryFailureAsIs(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, []interface{}{map[string]interface{}{"card_key": "K9X2M", "status_text": "卡密已删除"}})
	}))
	defer srv.Close()

	raw := NewLCardAdapter(testConfig(srv.URL), srv.Client()).Activate(context.Background(), "K9X2M-L")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, raw.Success())
	assert.Equal(t, "卡密已删除", raw.ErrorMessage())
}

func TestVocardAdapterUSAProfile(t *testing.T) {
	var coupon, itemID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		coupon = r.PostForm.Get("coupon")
		itemID = r.PostForm.Get("item_id")
		writeJSON(w, map[string]interface{}{
			"code": 200,
			"msg":  "ok",
			"data": map[string]interface{}{"secret": "z015 4462220002632161 01 / 2029 504", "tradeNo": "T1"},
		})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.DefaultAddress = config.BoltonAddress
	cfg.Options = map[string]string{"item_id": "59", "usa_item_id": "62"}

	raw := NewVocardAdapter(cfg, srv.Client()).Activate(context.Background(), "LR-ABCD1234-USA")

	assert.Equal(t, "LR-ABCD1234", coupon)
	assert.Equal(t, "62", itemID)
	require.True(t, raw.Success(), raw.ErrorMessage())
	card := raw.Card()
	assert.Equal(t, "4462220002632161", card["pan"])
	assert.Equal(t, "504", card["cvv"])
	assert.Equal(t, config.FairburnAddress.AsMap(), card["legal_address"])
}

func TestVocardAdapterDefaultProfileAndRejection(t *testing.T) {
	var itemID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		itemID = r.PostForm.Get("item_id")
		writeJSON(w, map[string]interface{}{"code": 400, "msg": "coupon already used"})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Options = map[string]string{"item_id": "59", "usa_item_id": "62"}

	raw := NewVocardAdapter(cfg, srv.Client()).Activate(context.Background(), "LR-ABCD1234")

	assert.Equal(t, "59", itemID)
	assert.False(t, raw.Success())
	assert.False(t, raw.Transport())
	assert.Equal(t, "coupon already used", raw.ErrorMessage())
}

func TestParseVocardSecret(t *testing.T) {
	tests := []struct {
		secret string
		want   VocardSecret
		ok     bool
	}{
		{"z015 4462220002632161 01 / 2029 504", VocardSecret{PAN: "4462220002632161", CVC: "504", ExpMonth: "01", ExpYear: "2029"}, true},
		{"4462220002632161 7/2030 1234", VocardSecret{PAN: "4462220002632161", CVC: "1234", ExpMonth: "07", ExpYear: "2030"}, true},
		{"4462220002632161", VocardSecret{PAN: "4462220002632161", ExpMonth: "00", ExpYear: "0000"}, true},
		{"no card here", VocardSecret{}, false},
		{"", VocardSecret{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.secret, func(t *testing.T) {
			got, ok := ParseVocardSecret(tt.secret)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
