// Package password scores candidate passwords and generates strong ones for
// sealing documents.
package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StrongThreshold is the lowest score in the top strength band.
const StrongThreshold = 80

// commonPenalty is subtracted from passwords found in the blocklist. It stays
// at or below the smallest class bonus so that appending a missing character
// class never lowers a score.
const commonPenalty = 10

// StrengthReport is the result of CheckPasswordStrength.
type StrengthReport struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	Common   bool   `json:"common,omitempty"`
}

// Strong reports whether the score is in the top band.
func (r StrengthReport) Strong() bool {
	return r.Score >= StrongThreshold
}

type classes struct {
	lower, upper, digit, symbol bool
}

func classify(password string) classes {
	var c classes
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsDigit(r):
			c.digit = true
		default:
			c.symbol = true
		}
	}
	return c
}

// CheckPasswordStrength scores password from 0 to 100 on length, character
// class diversity and membership in a list of common passwords.
func CheckPasswordStrength(password string) StrengthReport {
	score := 0

	n := utf8.RuneCountInString(password)
	if n >= 8 {
		score += 20
	}
	if n >= 12 {
		score += 20
	}
	if n >= 16 {
		score += 10
	}

	c := classify(password)
	if c.lower {
		score += 10
	}
	if c.upper {
		score += 10
	}
	if c.digit {
		score += 10
	}
	if c.symbol {
		score += 20
	}

	common := IsCommon(password)
	if common {
		score = max(score-commonPenalty, 0)
	}

	return StrengthReport{
		Score:    score,
		Feedback: feedback(score, common),
		Common:   common,
	}
}

func feedback(score int, common bool) string {
	var msg string
	switch {
	case score < 40:
		msg = "Weak - Add more characters and variety"
	case score < 60:
		msg = "Fair - Consider adding special characters"
	case score < StrongThreshold:
		msg = "Good - Strong password"
	default:
		msg = "Excellent - Very strong password"
	}
	if common {
		msg += " (appears in common password lists)"
	}
	return msg
}

// IsCommon reports whether password, ignoring case and trailing digits or
// punctuation, is a well-known password.
func IsCommon(password string) bool {
	p := strings.ToLower(password)
	if _, ok := blocklist[p]; ok {
		return true
	}
	stem := strings.TrimRightFunc(p, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if stem == "" {
		return false
	}
	_, ok := blocklist[stem]
	return ok
}

var blocklist = func() map[string]struct{} {
	m := make(map[string]struct{}, len(commonPasswords))
	for _, p := range commonPasswords {
		m[p] = struct{}{}
	}
	return m
}()

var commonPasswords = []string{
	"123456", "12345678", "123456789", "1234567890", "111111", "000000",
	"password", "passw0rd", "p@ssw0rd", "p@ssword", "qwerty", "qwertyuiop",
	"abc123", "letmein", "welcome", "monkey", "dragon", "master", "iloveyou",
	"sunshine", "princess", "football", "baseball", "shadow", "superman",
	"trustno1", "admin", "administrator", "login", "starwars", "whatever",
	"freedom", "hello", "secret", "bitcoin", "satoshi", "changeme", "default",
}
