package helper

import "strings"

// Issuer markers embedded in redemption codes.
var (
	HolySuffixes  = []string{"-Cursor", "-Holy", "-44622", "-4866"}
	LCardSuffixes = []string{"-L"}
	VocardPrefix  = "LR-"
	VocardUSA     = "-USA"
	MercuryPrefix = "mio-"
)

func HasAnySuffix(code string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(code, suffix) {
			return true
		}
	}
	return false
}

// MatchedSuffix returns the first suffix of the list that code ends with.
func MatchedSuffix(code string, suffixes []string) string {
	for _, suffix := range suffixes {
		if strings.HasSuffix(code, suffix) {
			return suffix
		}
	}
	return ""
}

func StripSuffixes(code string, suffixes []string) string {
	for _, suffix := range suffixes {
		code = strings.TrimSuffix(code, suffix)
	}
	return code
}
