// Package sanitizer normalizes inbound guest data before validation and
// storage. All functions are idempotent and handle garbage input by
// returning empty strings rather than errors.
package sanitizer

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var supportedRegions = []string{
	"IN",
	"US",
	"GB",
}

// TrimAndNormalize collapses internal whitespace runs to single spaces
// and trims the ends.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeEmail(email string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToLower,
	}
	return p.Apply(email)
}

// NormalizeSlug lowercases and reduces a room or accommodation
// identifier to letters, digits and single hyphens.
func NormalizeSlug(slug string) string {
	p := Pipeline{
		TrimAndNormalize,
		strings.ToLower,
		func(s string) string {
			var b strings.Builder
			lastWasSep := true
			for _, r := range s {
				switch {
				case unicode.IsLetter(r) || unicode.IsDigit(r):
					b.WriteRune(r)
					lastWasSep = false
				default:
					if !lastWasSep {
						b.WriteRune('-')
						lastWasSep = true
					}
				}
			}
			return strings.Trim(b.String(), "-")
		},
	}
	return p.Apply(slug)
}

// NormalizePhone converts a guest phone number to E.164. Unparseable
// numbers come back empty; validation decides whether that is fatal.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsValidNumber(parsedNumber) {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// NormalizeIDs trims, deduplicates and drops empty values while
// preserving first-seen order.
func NormalizeIDs(values []string) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
