package helper

import "strings"

// BeautifyCode trims a pasted redemption code down to its first field.
// Lines like "KEY 额度:0 有效期:1小时" keep only "KEY".
func BeautifyCode(code string) string {
	code = strings.TrimSpace(code)
	if fields := strings.Fields(code); len(fields) > 0 {
		return fields[0]
	}
	return code
}

// Last4 returns the last four digits of a card number.
func Last4(pan string) string {
	if len(pan) <= 4 {
		return pan
	}
	return pan[len(pan)-4:]
}

// MaskPAN keeps the first four and last four digits visible.
func MaskPAN(pan string) string {
	if len(pan) <= 8 {
		return pan
	}
	return pan[:4] + strings.Repeat("*", len(pan)-8) + pan[len(pan)-4:]
}

func isNumeric(str string) bool {
	if str == "" {
		return false
	}
	for _, r := range str {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
