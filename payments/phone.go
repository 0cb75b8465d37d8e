package payments

import (
	"regexp"
	"strings"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9]`)

// NormalizePhoneNumber converts the common local representations of a Kenyan
// subscriber number (leading 07/01, bare 9-digit, 254-prefixed, +254) into the
// canonical digits-only international form. The second return value reports
// whether the input matched a recognized format; unrecognized inputs are
// passed through digits-only unchanged, a documented limitation of the
// gateway contract.
func NormalizePhoneNumber(input string) (string, bool) {
	sanitized := nonNumericRegex.ReplaceAllString(input, "")

	if (strings.HasPrefix(sanitized, "07") || strings.HasPrefix(sanitized, "01")) && len(sanitized) == 10 {
		return "254" + sanitized[1:], true
	}
	if (strings.HasPrefix(sanitized, "7") || strings.HasPrefix(sanitized, "1")) && len(sanitized) == 9 {
		return "254" + sanitized, true
	}
	if strings.HasPrefix(sanitized, "254") && len(sanitized) == 12 {
		return sanitized, true
	}

	return sanitized, false
}
