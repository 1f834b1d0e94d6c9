// Package phone canonicalizes phone numbers from arbitrary spoken, written,
// or international input into +<countrycode><digits> form.
package phone

import (
	"regexp"
	"strings"
)

// wordDigits maps spoken number words (including common transcription
// mishearings) to their digit.
var wordDigits = map[string]string{
	"zero": "0", "oh": "0", "o": "0",
	"one": "1", "won": "1",
	"two": "2", "to": "2", "too": "2",
	"three": "3", "tree": "3",
	"four": "4", "for": "4", "fore": "4",
	"five": "5", "fife": "5",
	"six": "6", "sicks": "6",
	"seven": "7",
	"eight": "8", "ate": "8",
	"nine": "9", "nein": "9",
}

// separatorWords are spoken punctuation; they neither add digits nor reset
// the accumulator.
var separatorWords = map[string]bool{
	"dash": true, "hyphen": true, "dot": true, "point": true,
}

// descriptiveWords are stripped before digit extraction ("call me at ...").
var descriptiveWords = []string{"phone", "number", "call", "at", "extension", "ext"}

var numericOnlyRe = regexp.MustCompile(`^[0-9+\-().\s]+$`)

var tokenRe = regexp.MustCompile(`[a-zA-Z]+|[0-9]+`)

var digitRe = regexp.MustCompile(`[0-9]`)

var usRunRe = regexp.MustCompile(`1[0-9]{10}`)

var descriptiveRe = regexp.MustCompile(`(?i)\b(` + strings.Join(descriptiveWords, "|") + `)\b`)

var nonDigitPlusRe = regexp.MustCompile(`[^0-9+]`)

// Normalize converts raw input into canonical +<countrycode><digits> form.
// It never fails: input that cannot be canonicalized is returned trimmed so
// callers can still attempt exact-string lookups. Normalizing an
// already-canonical number returns it unchanged.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	s := stripScheme(trimmed)

	// Spoken parsing only applies when the input carries words; a string of
	// digits and punctuation goes straight to format inference.
	if !numericOnlyRe.MatchString(s) {
		if spoken := parseSpoken(s); spoken != "" {
			return spoken
		}
		s = descriptiveRe.ReplaceAllString(s, " ")
	}

	kept := nonDigitPlusRe.ReplaceAllString(s, "")
	if out := applyFormatRules(kept); out != "" {
		return out
	}
	return trimmed
}

// stripScheme removes a transport scheme marker such as "whatsapp:".
func stripScheme(s string) string {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "whatsapp:") {
		return strings.TrimSpace(s[len("whatsapp:"):])
	}
	return s
}

// parseSpoken accumulates digits from number words and literal digit runs.
// A word that is neither a number word nor a separator resets the
// accumulator, but only while fewer than 10 digits have been collected —
// trailing chatter must not discard a full number.
func parseSpoken(s string) string {
	var digits strings.Builder
	for _, tok := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		switch {
		case digitRe.MatchString(tok):
			digits.WriteString(tok)
		case wordDigits[tok] != "":
			digits.WriteString(wordDigits[tok])
		case separatorWords[tok]:
			// spoken punctuation, ignore
		default:
			if digits.Len() < 10 {
				digits.Reset()
			}
		}
	}

	d := digits.String()
	switch {
	case len(d) < 10:
		return ""
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		return "+" + d
	default:
		return "+1" + d[len(d)-10:]
	}
}

// applyFormatRules canonicalizes a string already reduced to digits and '+'.
// Returns "" when no rule applies.
func applyFormatRules(s string) string {
	if strings.HasPrefix(s, "+1") {
		rest := s[2:]
		switch {
		case len(rest) == 10:
			return s
		case len(rest) == 11:
			// Consumers truncate further if they need to.
			return s
		case len(rest) > 11:
			return "+1" + rest[len(rest)-10:]
		}
		return ""
	}
	if strings.HasPrefix(s, "+") {
		// Non-US international: trust the country code as given.
		return s
	}

	switch {
	case len(s) == 11 && strings.HasPrefix(s, "1"):
		return "+" + s
	case len(s) == 10:
		return "+1" + s
	case len(s) >= 11:
		if run := usRunRe.FindString(s); run != "" {
			return "+1" + run[1:]
		}
		return "+1" + s[len(s)-10:]
	}
	return ""
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastDigits returns the trailing n digits of s, or "" if s holds fewer
// than n digits.
func LastDigits(s string, n int) string {
	d := Digits(s)
	if len(d) < n {
		return ""
	}
	return d[len(d)-n:]
}
