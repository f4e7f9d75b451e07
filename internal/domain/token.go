package domain

// TokenPair is issued after every successful authentication or registration.
type TokenPair struct {
	Access  string
	Refresh string
}
