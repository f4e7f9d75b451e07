package validation

import (
	"encoding/json"
	"strings"
	"time"

	"auth-gateway/internal/domain"
)

// registeredLayouts are the date_registered encodings the identity store is
// known to emit: RFC 3339, and the space-separated form of a stringified datetime.
var registeredLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// profilePayload is the fixed schema accepted from the remote identity store.
// Unknown fields are dropped by the decoder.
type profilePayload struct {
	ID             *int64 `json:"id" validate:"required"`
	Username       string `json:"username" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PhoneNumber    string `json:"phone_number"`
	Age            *int   `json:"age"`
	Status         string `json:"status"`
	DateRegistered string `json:"date_registered"`
}

// Profile re-validates an identity payload before it is relayed to a caller.
func Profile(raw []byte) (*domain.User, error) {
	var p profilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		if verr := FromDecodeError(err); verr != nil {
			return nil, verr
		}
		return nil, newError(DetailKey, "empty profile payload")
	}
	if err := check(p); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:          *p.ID,
		Username:    p.Username,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		PhoneNumber: p.PhoneNumber,
		Age:         p.Age,
		Status:      p.Status,
	}
	if s := strings.TrimSpace(p.DateRegistered); s != "" {
		registered, err := parseRegistered(s)
		if err != nil {
			return nil, newError("date_registered", "invalid datetime")
		}
		user.DateRegistered = &registered
	}
	return user, nil
}

func parseRegistered(s string) (time.Time, error) {
	var err error
	for _, layout := range registeredLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
