package service

import (
	"cardhub/config"
	"cardhub/helper"
	"cardhub/lib"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActivated = "activated"
	StatusUnknown   = "unknown"
)

var (
	// ErrMissingPAN is returned when an issuer claims success without a card number.
	ErrMissingPAN = errors.New("activation claims success but card number missing")
	ErrInvalidPAN = errors.New("activation returned a malformed card number")
)

// Timestamp is a normalized time. When the issuer value could not be parsed
// Raw holds it unmodified and Time is zero.
type Timestamp struct {
	Time time.Time
	Raw  string
}

func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

// Parsed returns the time when one was understood.
func (t Timestamp) Parsed() *time.Time {
	if t.Time.IsZero() {
		return nil
	}
	tm := t.Time
	return &tm
}

func (t Timestamp) String() string {
	if !t.Time.IsZero() {
		return helper.FormatReference(t.Time)
	}
	return t.Raw
}

// CardInfo is the issuer-agnostic view of an activated card.
type CardInfo struct {
	PAN            string
	CVC            string
	ExpMonth       string
	ExpYear        string
	ExpDisplay     string
	BillingAddress string
	Nickname       string
	Limit          decimal.Decimal
	StatusText     string
	CreationTime   Timestamp
	ExpirationTime Timestamp
	ValidityHours  *float64
}

func (c CardInfo) Activated() bool {
	return c.StatusText == StatusActivated
}

// Canonical renders the info with the canonical key names. Normalizing the
// result yields the same CardInfo.
func (c CardInfo) Canonical() lib.RawResponse {
	card := map[string]interface{}{
		"card_number":     c.PAN,
		"card_cvc":        c.CVC,
		"card_exp_date":   c.ExpDisplay,
		"billing_address": c.BillingAddress,
		"card_nickname":   c.Nickname,
		"card_limit":      c.Limit.String(),
	}
	if !c.CreationTime.IsZero() {
		card["create_time"] = c.CreationTime.String()
	}
	if !c.ExpirationTime.IsZero() {
		card["expiration_time"] = c.ExpirationTime.String()
	}
	if c.ValidityHours != nil {
		card["validity_hours"] = *c.ValidityHours
	}
	return lib.RawResponse{
		"success": c.StatusText == StatusActivated,
		"card":    card,
	}
}

// field is one alias lookup; aliases are tried in order, first non-empty wins.
type field []string

var (
	panField        = field{"pan", "card_number", "cardNumber", "number"}
	cvcField        = field{"cvv", "card_cvc", "cvc", "security_code"}
	expMonthField   = field{"exp_month", "expiry_month", "expMonth"}
	expYearField    = field{"exp_year", "expiry_year", "expYear"}
	expDisplayField = field{"card_exp_date", "expiry", "exp"}
	addressField    = field{"legal_address", "billing_address", "address"}
	nicknameField   = field{"card_nickname", "nickname", "name"}
	limitField      = field{"card_limit", "limit", "amount", "balance"}
	createdField    = field{"created_time", "create_time", "created_at", "activated_at"}
	expiryField     = field{"expire_time", "expiration_time", "expires_at", "delete_date"}
	minutesField    = field{"expire_minutes", "validity_minutes"}
	hoursField      = field{"validity_hours"}
)

var (
	address1Keys   = field{"address1", "line1", "street", "address"}
	cityKeys       = field{"city"}
	regionKeys     = field{"region", "state", "province"}
	postalCodeKeys = field{"postal_code", "zip", "postcode", "zip_code"}
	countryKeys    = field{"country", "country_code"}
)

// lookup searches the card object first and then the response root.
func (f field) lookup(scopes ...map[string]interface{}) (interface{}, bool) {
	for _, scope := range scopes {
		if scope == nil {
			continue
		}
		for _, key := range f {
			value, ok := scope[key]
			if !ok || value == nil {
				continue
			}
			if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return value, true
		}
	}
	return nil, false
}

func (f field) text(scopes ...map[string]interface{}) string {
	value, ok := f.lookup(scopes...)
	if !ok {
		return ""
	}
	return stringify(value)
}

// Normalizer maps raw issuer payloads to CardInfo.
type Normalizer struct {
	Addresses map[lib.IssuerKind]config.Address
	// Validity is the retention window in hours applied when the issuer
	// reports none.
	Validity map[lib.IssuerKind]float64
	Now      func() time.Time
}

// NewNormalizer registers the configured default address and validity of
// every issuer.
func NewNormalizer() *Normalizer {
	addresses := make(map[lib.IssuerKind]config.Address, len(lib.AllKinds))
	validity := make(map[lib.IssuerKind]float64, len(lib.AllKinds))
	for _, kind := range lib.AllKinds {
		if cfg, err := config.GetIssuerConfig(string(kind)); err == nil {
			addresses[kind] = cfg.DefaultAddress
			if cfg.DefaultValidityHours > 0 {
				validity[kind] = cfg.DefaultValidityHours
			}
		}
	}
	return &Normalizer{Addresses: addresses, Validity: validity, Now: time.Now}
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return helper.ToReference(time.Now())
	}
	return helper.ToReference(n.Now())
}

// Normalize extracts the canonical card info. A successful payload without a
// well-formed card number yields ErrMissingPAN or ErrInvalidPAN alongside the
// partial info.
func (n *Normalizer) Normalize(raw lib.RawResponse, kind lib.IssuerKind) (CardInfo, error) {
	card := raw.Card()
	root := map[string]interface{}(raw)

	info := CardInfo{
		PAN:        digitsOnly(panField.text(card, root)),
		CVC:        cvcField.text(card, root),
		StatusText: StatusUnknown,
	}

	info.ExpMonth, info.ExpYear = expiryParts(card, root)
	if info.ExpMonth != "" && info.ExpYear != "" {
		info.ExpDisplay = info.ExpMonth + "/" + info.ExpYear
	}

	info.BillingAddress = n.address(kind, card, root)

	info.Nickname = nicknameField.text(card, root)
	if info.Nickname == "" && info.PAN != "" {
		info.Nickname = "Card " + helper.Last4(info.PAN)
	}

	info.Limit = decimal.Zero
	if value, ok := limitField.lookup(card, root); ok {
		if limit, err := toDecimal(value); err == nil {
			info.Limit = limit
		}
	}

	if value, ok := createdField.lookup(card, root); ok {
		info.CreationTime = toTimestamp(value)
	}

	minutes, hasMinutes := floatField(minutesField, root, card)
	policyHours, usePolicy := 0.0, false
	if hasMinutes {
		hours := minutes / 60
		info.ValidityHours = &hours
	} else if hours, ok := floatField(hoursField, card, root); ok {
		info.ValidityHours = &hours
	} else if hours := n.Validity[kind]; hours > 0 {
		policyHours, usePolicy = hours, true
		info.ValidityHours = &policyHours
	}

	// an absolute expiry from the issuer wins over now + validity
	if value, ok := expiryField.lookup(card, root); ok {
		info.ExpirationTime = toTimestamp(value)
	} else if hasMinutes {
		info.ExpirationTime = Timestamp{Time: n.now().Add(time.Duration(minutes * float64(time.Minute)))}
	} else if usePolicy {
		start := n.now()
		if created := info.CreationTime.Parsed(); created != nil {
			start = *created
		}
		info.ExpirationTime = Timestamp{Time: helper.ToReference(start.Add(time.Duration(policyHours * float64(time.Hour))))}
	}

	if raw.Success() {
		if info.PAN == "" {
			return info, ErrMissingPAN
		}
		if !helper.IsCardNumber(info.PAN) {
			return info, fmt.Errorf("%w: %s", ErrInvalidPAN, helper.MaskPAN(info.PAN))
		}
		info.StatusText = StatusActivated
	}
	return info, nil
}

func (n *Normalizer) address(kind lib.IssuerKind, scopes ...map[string]interface{}) string {
	if value, ok := addressField.lookup(scopes...); ok {
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		case map[string]interface{}:
			address := config.Address{
				Address1:   address1Keys.text(v),
				City:       cityKeys.text(v),
				Region:     regionKeys.text(v),
				PostalCode: postalCodeKeys.text(v),
				Country:    countryKeys.text(v),
			}
			if !address.IsZero() {
				return address.Line()
			}
		}
	}
	if address, ok := n.Addresses[kind]; ok {
		return address.Line()
	}
	return config.DefaultUSAddress.Line()
}

// expiryParts returns a two digit month and a two digit year.
func expiryParts(scopes ...map[string]interface{}) (string, string) {
	month := expMonthField.text(scopes...)
	year := expYearField.text(scopes...)

	if month == "" || year == "" {
		display := expDisplayField.text(scopes...)
		parts := strings.SplitN(display, "/", 2)
		if len(parts) != 2 {
			return "", ""
		}
		month, year = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	if len(month) == 1 {
		month = "0" + month
	}
	if len(year) == 4 {
		year = year[2:]
	}
	return month, year
}

func toTimestamp(value interface{}) Timestamp {
	t, err := helper.ParseTimestamp(value)
	if err != nil {
		return Timestamp{Raw: stringify(value)}
	}
	return Timestamp{Time: t}
}

func floatField(f field, scopes ...map[string]interface{}) (float64, bool) {
	value, ok := f.lookup(scopes...)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return parsed, err == nil
	}
	return 0, false
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(v), "$"))
	}
	return decimal.Zero, fmt.Errorf("unsupported limit type %T", value)
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func digitsOnly(pan string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, pan)
}
