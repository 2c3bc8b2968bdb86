package password

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		score    int
		feedback string
	}{
		{"", 0, "Weak - Add more characters and variety"},
		{"abc", 10, "Weak - Add more characters and variety"},
		{"abcdefgh", 30, "Weak - Add more characters and variety"},
		{"abcdefgH1", 50, "Fair - Consider adding special characters"},
		{"abcdefgH1xyz", 70, "Good - Strong password"},
		{"abcdefgH1xyz!", 90, "Excellent - Very strong password"},
		{"abcdefgH1xyz!mno", 100, "Excellent - Very strong password"},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			r := CheckPasswordStrength(tt.password)
			assert.Equal(t, tt.score, r.Score)
			assert.Equal(t, tt.feedback, r.Feedback)
			assert.False(t, r.Common)
		})
	}
}

func TestCommonPasswords(t *testing.T) {
	for _, p := range []string{"password", "Password", "PASSWORD123", "qwerty!", "P@ssw0rd"} {
		t.Run(p, func(t *testing.T) {
			assert.True(t, IsCommon(p))
			r := CheckPasswordStrength(p)
			assert.True(t, r.Common)
			assert.Contains(t, r.Feedback, "common password")
		})
	}

	assert.False(t, IsCommon("x7#Vq2!mLp"))
	assert.False(t, IsCommon("!!!"))

	plain := CheckPasswordStrength("Password123!")
	other := CheckPasswordStrength("Bzqwxvkl123!")
	assert.Less(t, plain.Score, other.Score)
}

func TestStrengthOrdering(t *testing.T) {
	assert.LessOrEqual(t,
		CheckPasswordStrength("abc").Score,
		CheckPasswordStrength("abcABC123!@#").Score)
}

func TestMonotoneInMissingClass(t *testing.T) {
	samples := []string{
		"", "a", "abc", "ABC", "123", "!!", "passwor", "P@SSW0R", "qwert", "DRAGO",
		"abcdefg", "abcdefghijk", "abcdefghijklmno", "Password", "12345",
	}
	additions := map[string]func(classes) bool{
		"x": func(c classes) bool { return !c.lower },
		"X": func(c classes) bool { return !c.upper },
		"7": func(c classes) bool { return !c.digit },
		"#": func(c classes) bool { return !c.symbol },
		"d": func(c classes) bool { return !c.lower },
		"Y": func(c classes) bool { return !c.upper },
	}
	for _, s := range samples {
		before := CheckPasswordStrength(s).Score
		c := classify(s)
		for add, missing := range additions {
			if !missing(c) {
				continue
			}
			after := CheckPasswordStrength(s + add).Score
			assert.GreaterOrEqual(t, after, before, "%q + %q", s, add)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	for _, p := range []string{"", "a", "Zz9!Zz9!Zz9!Zz9!Zz9!Zz9!", "password"} {
		s := CheckPasswordStrength(p).Score
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p, err := GeneratePassword()
		require.NoError(t, err)
		assert.Equal(t, GeneratedLength, utf8.RuneCountInString(p))

		c := classify(p)
		assert.True(t, c.lower && c.upper && c.digit && c.symbol, "missing class in %q", p)

		r := CheckPasswordStrength(p)
		assert.True(t, r.Strong(), "score %d for %q", r.Score, p)
		seen[p] = true
	}
	assert.Len(t, seen, 100)
}

func BenchmarkCheckPasswordStrength(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CheckPasswordStrength("abcdefgH1xyz!mno")
	}
}
