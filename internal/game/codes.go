package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"strings"
	"unicode"
)

// Ambiguous characters (0/O, 1/I) are left out of room codes.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random room code of RoomCodeLength characters.
func GenerateCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
			continue
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}

// NormalizeCode uppercases a client-supplied code and reports whether it is
// a plausible room code at all.
func NormalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != RoomCodeLength {
		return "", false
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return "", false
		}
	}
	return code, true
}

// SanitizeName bounds a display name to a safe character set. Names that
// sanitize to nothing become "player".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if b.Len() >= MaxNameLength {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "player"
	}
	return out
}
