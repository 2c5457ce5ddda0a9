package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Generator produces random identity data using crypto/rand.
type Generator struct {
	now func() time.Time
}

// New creates a generator. It panics if a built-in corpus is empty, which
// can only happen through a programming error.
func New() *Generator {
	if err := checkCorpora(); err != nil {
		panic("identity: " + err.Error())
	}
	return &Generator{now: time.Now}
}

// Generate produces a complete random identity.
func (g *Generator) Generate() Identity {
	first, last := g.Name()
	loc := pickLocation()
	dob, age := g.dob()

	return Identity{
		FirstName:   first,
		LastName:    last,
		Username:    g.Username(),
		Email:       g.email(first),
		Phone:       phone(loc),
		DateOfBirth: dob.Format(dateLayout),
		Age:         age,
		Street:      street(loc),
		City:        loc.City,
		Country:     loc.Country,
	}
}

// Name generates a random first/last name pair.
func (g *Generator) Name() (first, last string) {
	return pick(firstNames), pick(lastNames)
}

// Email generates a fabricated address for a random first name.
func (g *Generator) Email() string {
	return g.email(pick(firstNames))
}

// Username joins two word fragments with an optional separator and,
// half of the time, a 2-4 digit suffix.
func (g *Generator) Username() string {
	a := pick(usernameParts)
	b := pick(usernameParts)
	sep := pick(usernameSeparators)

	var suffix string
	if randIntn(2) == 1 {
		suffix = digits(randRange(2, 4))
	}
	return a + sep + b + suffix
}

// email builds {first}{sep}{2-5 digits}@{domain}.
func (g *Generator) email(first string) string {
	local := strings.ToLower(first) + pick(emailSeparators) + digits(randRange(2, 5))
	return local + "@" + pick(emailDomains)
}

// dob picks a calendar date whose age as of now falls in [minAge, maxAge].
// Sampling by year can land one year short at the young edge, so those
// draws are retried.
func (g *Generator) dob() (time.Time, int) {
	now := g.now()
	for {
		year := now.Year() - randRange(minAge, maxAge)
		month := time.Month(randRange(1, 12))
		day := randRange(1, daysIn(year, month))

		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		age := Age(d, now)
		if age >= minAge && age <= maxAge {
			return d, age
		}
	}
}

// Age returns full years elapsed between dob and now, counting a year only
// once the birthday has been reached.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// phone formats "{prefix} XXX XXX XXX[X]".
func phone(loc Location) string {
	return fmt.Sprintf("%s %s %s %s", loc.PhonePrefix, digits(3), digits(3), digits(randRange(3, 4)))
}

// street formats "{street name} {1-200}".
func street(loc Location) string {
	return pick(loc.Streets) + " " + strconv.Itoa(randRange(1, 200))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func checkCorpora() error {
	tables := map[string][]string{
		"first names":         firstNames,
		"last names":          lastNames,
		"email domains":       emailDomains,
		"email separators":    emailSeparators,
		"username parts":      usernameParts,
		"username separators": usernameSeparators,
	}
	for name, t := range tables {
		if len(t) == 0 {
			return fmt.Errorf("empty corpus: %s", name)
		}
	}

	if len(locations) == 0 {
		return fmt.Errorf("empty corpus: locations")
	}
	for _, loc := range locations {
		if len(loc.Streets) == 0 {
			return fmt.Errorf("empty corpus: streets for %s", loc.City)
		}
	}
	return nil
}

func pickLocation() Location {
	return locations[randIntn(len(locations))]
}

// digits returns n random decimal digits.
func digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + randIntn(10))
	}
	return string(b)
}

// pick returns a random element from a string slice.
func pick(s []string) string {
	return s[randIntn(len(s))]
}

// randRange returns a random int in [lo, hi].
func randRange(lo, hi int) int {
	return lo + randIntn(hi-lo+1)
}

// randIntn returns a cryptographically random int in [0, n).
func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
