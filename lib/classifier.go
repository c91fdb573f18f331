package lib

import (
	"cardhub/helper"
	"strings"

	"github.com/google/uuid"
)

// Classification is the result of matching a code against the issuer rules.
type Classification struct {
	Kind     IssuerKind
	Rule     string
	Fallback bool
}

type classifierRule struct {
	name  string
	kind  IssuerKind
	match func(code string) bool
}

// Rules are evaluated in order. Literal suffixes come before prefixes and the
// generic UUID shape comes last, since a code may satisfy more than one.
var classifierRules = []classifierRule{
	{name: "holy-suffix", kind: KindHoly, match: func(code string) bool {
		return helper.HasAnySuffix(code, helper.HolySuffixes)
	}},
	{name: "lcard-suffix", kind: KindLCard, match: func(code string) bool {
		return helper.HasAnySuffix(code, helper.LCardSuffixes)
	}},
	{name: "vocard-prefix", kind: KindVocard, match: func(code string) bool {
		return strings.HasPrefix(strings.ToUpper(code), helper.VocardPrefix)
	}},
	{name: "uuid", kind: KindMercury, match: isUUIDCode},
}

// Classify maps a redemption code to its issuer. It never fails: codes that
// match no rule go to mercury, the most general backend.
func Classify(code string) IssuerKind {
	return ClassifyDetail(code).Kind
}

func ClassifyDetail(code string) Classification {
	code = helper.BeautifyCode(code)
	for _, rule := range classifierRules {
		if rule.match(code) {
			return Classification{Kind: rule.kind, Rule: rule.name}
		}
	}
	return Classification{Kind: KindMercury, Rule: "default", Fallback: true}
}

func isUUIDCode(code string) bool {
	lower := strings.ToLower(code)
	lower = strings.TrimPrefix(lower, helper.MercuryPrefix)
	if len(lower) != 36 {
		return false
	}
	return uuid.Validate(lower) == nil
}
