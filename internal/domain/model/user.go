package model

// User is the authenticated DEVisible account holder as reported by the backend.
type User struct {
	Username string
}

// Credentials holds a username/password pair submitted for login or signup.
type Credentials struct {
	Username string
	Password string
}

// Account holds the account page data, including the API key the DEVisible
// CLI uses to post build data for a repository.
type Account struct {
	Username string
	APIKey   string
}
