package password

import (
	"fmt"

	"github.com/jmcleod/inkseal/internal/util"
)

// GeneratedLength is the length of passwords returned by GeneratePassword.
const GeneratedLength = 20

var (
	lowerChars  = []rune("abcdefghijklmnopqrstuvwxyz")
	upperChars  = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	digitChars  = []rune("0123456789")
	symbolChars = []rune("!@#$%^&*-_=+?")
	allChars    = concatRunes(lowerChars, upperChars, digitChars, symbolChars)
)

// GeneratePassword returns a random password of GeneratedLength characters
// containing at least one lowercase letter, uppercase letter, digit and
// symbol. Its score is always at least StrongThreshold.
func GeneratePassword() (string, error) {
	out := make([]rune, 0, GeneratedLength)
	for _, set := range [][]rune{lowerChars, upperChars, digitChars, symbolChars} {
		s, err := util.RandomString(set, 1)
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		out = append(out, []rune(s)...)
	}
	rest, err := util.RandomString(allChars, GeneratedLength-len(out))
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	out = append(out, []rune(rest)...)
	if err := util.ShuffleRunes(out); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return string(out), nil
}

func concatRunes(sets ...[]rune) []rune {
	var out []rune
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
