package domain

import "time"

// User represents an identity known to the gateway, either stored locally or
// relayed from the remote identity store.
type User struct {
	ID             int64
	Username       string
	Email          string
	FirstName      string
	LastName       string
	PhoneNumber    string
	Age            *int
	Status         string
	DateRegistered *time.Time
	PasswordHash   string
}

// Registration is validated account creation input.
type Registration struct {
	Username    string
	Password    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Age         *int
	Status      string
}

// Credentials are a username/password pair used only while authenticating.
type Credentials struct {
	Username string
	Password string
}

// Principal is the caller established by access token verification.
type Principal struct {
	UserID      int64
	Username    string
	AccessToken string
}
