package credentials

// Credential is one stored secret, addressed by the service it belongs to and
// the account within that service. Passwords are stored as given; encryption
// at rest is the database operator's concern.
type Credential struct {
	Service  string `json:"service"`
	Account  string `json:"account"`
	Password string `json:"password"`
}
