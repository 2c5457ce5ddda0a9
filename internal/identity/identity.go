// Package identity generates disposable personal data.
// All generation uses crypto/rand; identities are not reproducible from a seed.
package identity

// Identity holds a complete generated persona.
type Identity struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
	Age         int    `json:"age"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// FullName joins first and last name.
func (id Identity) FullName() string {
	return id.FirstName + " " + id.LastName
}

// WithEmail returns a copy of the identity with its email replaced.
func (id Identity) WithEmail(email string) Identity {
	id.Email = email
	return id
}
