// Package fakedata generates throwaway credentials for registration
// scenarios.
package fakedata

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v7"
)

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	specialChars = "!@#$%&*?"

	// minPasswordLen leaves room for one upper-case and one special rune.
	minPasswordLen = 2
)

// Generator wraps a gofakeit Faker. Safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// New returns a generator. A zero seed picks a random one.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Username returns a lower-case username with a numeric suffix to keep
// collisions with existing accounts unlikely.
func (g *Generator) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := strings.ToLower(g.faker.Username())
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, name)
	return name + g.faker.Numerify("####")
}

func (g *Generator) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return strings.ToLower(g.faker.Email())
}

// Password returns a password of length within [min, max] containing at
// least one upper-case letter and one special character.
func (g *Generator) Password(min, max int) string {
	if min < minPasswordLen {
		min = minPasswordLen
	}
	if max < min {
		max = min
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.faker.IntRange(min, max)
	pw := []byte(g.faker.Password(true, true, true, true, false, n))
	pw = pw[:n]

	if !strings.ContainsAny(string(pw), upperChars) {
		pw[g.faker.IntRange(0, n-1)] = upperChars[g.faker.IntRange(0, len(upperChars)-1)]
	}
	if !hasSpecial(pw) {
		i := g.faker.IntRange(0, n-1)
		for isUpper(pw[i]) && countUpper(pw) == 1 {
			i = (i + 1) % n
		}
		pw[i] = specialChars[g.faker.IntRange(0, len(specialChars)-1)]
	}
	return string(pw)
}

func hasSpecial(pw []byte) bool {
	for _, c := range pw {
		if !isUpper(c) && !unicode.IsLetter(rune(c)) && !unicode.IsDigit(rune(c)) && c != ' ' {
			return true
		}
	}
	return false
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func countUpper(pw []byte) int {
	n := 0
	for _, c := range pw {
		if isUpper(c) {
			n++
		}
	}
	return n
}

// StampedUsername returns user_<unix millis>.
func StampedUsername(now time.Time) string {
	return "user_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// StampedPassword returns password_<unix millis>.
func StampedPassword(now time.Time) string {
	return "password_" + strconv.FormatInt(now.UnixMilli(), 10)
}
