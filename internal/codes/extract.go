// Package codes finds one-time verification codes in received mail.
package codes

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"github.com/zarlcorp/zmask/internal/mailtm"
)

// Kind tells numeric codes from mixed letter/digit ones.
type Kind string

const (
	Numeric      Kind = "numeric"
	Alphanumeric Kind = "alphanumeric"
)

// Code is a likely verification code.
type Code struct {
	Value string
	Kind  Kind
}

var keywords = []string{
	"verification",
	"code",
	"otp",
	"one-time",
	"confirm",
	"pin",
	"security code",
	"2fa",
	"authenticate",
	"verify",
}

// words that mark a 4-digit number as a year
var yearWords = []string{"copyright", "(c)", "year", "since", "est.", "founded"}

var (
	numericRe      = regexp.MustCompile(`\b(\d{4}|\d{6}|\d{8})\b`)
	alphanumericRe = regexp.MustCompile(`\b[A-Za-z0-9]{6}\b`)
	yearRe         = regexp.MustCompile(`^(19|20)\d{2}$`)

	// stripped before scanning so their digits don't count
	urlRe   = regexp.MustCompile(`https?://\S+`)
	emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// FromMessage looks for codes in the subject and the rendered body.
func FromMessage(m mailtm.Message) []Code {
	return Find(m.Subject + "\n" + m.Body())
}

// Best returns the most likely code in m.
func Best(m mailtm.Message) (Code, bool) {
	found := FromMessage(m)
	if len(found) == 0 {
		return Code{}, false
	}
	return found[0], true
}

// Find returns the candidate codes in text, most likely first. It returns nil
// when there are none.
func Find(text string) []Code {
	if text == "" {
		return nil
	}

	d := doc(emailRe.ReplaceAllString(urlRe.ReplaceAllString(text, " "), " "))

	var found []candidate
	for _, loc := range numericRe.FindAllStringIndex(string(d), -1) {
		c := d.candidate(loc, Numeric)
		if !d.rejected(c) {
			found = append(found, c)
		}
	}
	for _, loc := range alphanumericRe.FindAllStringIndex(string(d), -1) {
		c := d.candidate(loc, Alphanumeric)
		if mixed(c.Value) {
			found = append(found, c)
		}
	}

	found = lo.UniqBy(found, func(c candidate) string { return c.Value })
	if len(found) == 0 {
		return nil
	}

	for i := range found {
		found[i].score = d.score(found[i])
	}
	slices.SortStableFunc(found, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})

	return lo.Map(found, func(c candidate, _ int) Code { return c.Code })
}

type candidate struct {
	Code
	start, end int
	score      int
}

// doc is the cleaned text being scanned.
type doc string

func (d doc) candidate(loc []int, kind Kind) candidate {
	return candidate{
		Code:  Code{Value: string(d[loc[0]:loc[1]]), Kind: kind},
		start: loc[0],
		end:   loc[1],
	}
}

// rejected drops numbers that are prices, years, times or pieces of longer
// numbers.
func (d doc) rejected(c candidate) bool {
	start, end := c.start, c.end

	if strings.Contains(string(d[max(0, start-2):start]), "$") {
		return true
	}

	if len(c.Value) == 4 {
		if yearRe.MatchString(c.Value) {
			around := d.window(start, end, 30)
			if lo.SomeBy(yearWords, func(w string) bool { return strings.Contains(around, w) }) {
				return true
			}
			if !d.keywordNear(start, end) {
				return true
			}
		}
		if d.at(end) == ':' || d.at(start-1) == ':' {
			return true
		}
	}

	if isDigit(d.at(start-1)) || isDigit(d.at(end)) {
		return true
	}

	// decimals such as 1234.50
	if d.at(end) == '.' && isDigit(d.at(end+1)) {
		return true
	}
	if d.at(start-1) == '.' && isDigit(d.at(start-2)) {
		return true
	}

	return false
}

func (d doc) score(c candidate) int {
	s := 0

	switch {
	case c.Kind == Alphanumeric:
		s += 10
	case len(c.Value) == 6:
		s += 30
	case len(c.Value) == 8:
		s += 20
	case len(c.Value) == 4:
		s += 15
	}

	if d.keywordNear(c.start, c.end) {
		s += 50
	}

	// "code is 123456", "code: 123456", "G-123456"
	before := strings.TrimRight(strings.ToLower(string(d[max(0, c.start-10):c.start])), " ")
	if strings.HasSuffix(before, ":") || strings.HasSuffix(before, "is") || strings.HasSuffix(before, "-") {
		s += 20
	}

	if isSpace(d.at(c.start-1)) && isSpace(d.at(c.end)) {
		s += 10
	}

	return s
}

func (d doc) keywordNear(start, end int) bool {
	around := d.window(start, end, 60)
	return lo.SomeBy(keywords, func(kw string) bool { return strings.Contains(around, kw) })
}

// window returns the lowercased text within radius bytes of [start, end).
func (d doc) window(start, end, radius int) string {
	return strings.ToLower(string(d[max(0, start-radius):min(len(d), end+radius)]))
}

// at returns the byte at i, or 0 outside the text.
func (d doc) at(i int) byte {
	if i < 0 || i >= len(d) {
		return 0
	}
	return d[i]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// isSpace treats the text boundaries as space.
func isSpace(b byte) bool { return b == 0 || b == ' ' || b == '\n' || b == '\t' }

func mixed(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLetter) && strings.ContainsFunc(s, unicode.IsDigit)
}
