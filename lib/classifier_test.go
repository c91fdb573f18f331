package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		want     IssuerKind
		fallback bool
	}{
		{"cursor suffix", "ABCD-EFGH-Cursor", KindHoly, false},
		{"holy suffix", "KEY123-Holy", KindHoly, false},
		{"fairburn suffix", "KEY123-4866", KindHoly, false},
		{"london suffix", "KEY123-44622", KindHoly, false},
		{"uuid with holy suffix", "3f2b8c1e-9a4d-4e8b-a1f2-0c9d8e7f6a5b-Holy", KindHoly, false},
		{"lcard suffix", "K9X2M-L", KindLCard, false},
		{"lcard suffix wins over vocard prefix", "LR-K9X2M-L", KindLCard, false},
		{"vocard prefix", "LR-ABCD1234", KindVocard, false},
		{"vocard usa", "LR-ABCD1234-USA", KindVocard, false},
		{"bare uuid", "3f2b8c1e-9a4d-4e8b-a1f2-0c9d8e7f6a5b", KindMercury, false},
		{"mio uuid", "mio-3f2b8c1e-9a4d-4e8b-a1f2-0c9d8e7f6a5b", KindMercury, false},
		{"pasted line", "LR-ABCD1234-USA 额度:0 有效期:1小时", KindVocard, false},
		{"unknown shape", "SOMETHING-ELSE", KindMercury, true},
		{"empty", "", KindMercury, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDetail(tt.code)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.fallback, got.Fallback)
			assert.Equal(t, tt.want, Classify(tt.code))
		})
	}
}

func TestClassifySuffixBeatsGenericPattern(t *testing.T) {
	base := "3f2b8c1e-9a4d-4e8b-a1f2-0c9d8e7f6a5b"
	for _, suffix := range []string{"-Cursor", "-Holy", "-44622", "-4866"} {
		assert.Equal(t, KindHoly, Classify(base+suffix), suffix)
	}
	assert.Equal(t, KindLCard, Classify(base+"-L"))
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(NewMercuryAdapter(testConfig("http://127.0.0.1"), nil))

	adapter, err := registry.Lookup(KindMercury)
	assert.NoError(t, err)
	assert.Equal(t, KindMercury, adapter.Kind())

	_, err = registry.Lookup(KindVocard)
	assert.Error(t, err)
	assert.Equal(t, []string{"mercury"}, registry.Kinds())
}

func TestRawResponseAccessors(t *testing.T) {
	raw := RawResponse{"success": true, "card": map[string]interface{}{"pan": "1"}}
	assert.True(t, raw.Success())
	assert.Equal(t, "", raw.ErrorMessage())
	assert.Equal(t, "1", raw.Card()["pan"])

	failed := RawResponse{"success": false, "error": map[string]interface{}{"message": "Key already used"}}
	assert.False(t, failed.Success())
	assert.Equal(t, "Key already used", failed.ErrorMessage())
	assert.Equal(t, map[string]interface{}(failed), failed.Card())

	transport := TransportFailure("network error: %s", "refused")
	assert.True(t, transport.Transport())
	assert.False(t, Failure("nope").Transport())
}
