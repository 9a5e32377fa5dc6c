package domain

import (
	"encoding/json"
	"time"
)

// SessionCookie is one browser cookie captured at login time.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// SessionPayload is the decrypted credential-vault payload for one account.
// Browser flows replay Cookies before navigation; the Instagram API engine
// imports Raw, which preserves the platform-native settings object exactly
// as it was captured at login.
type SessionPayload struct {
	Username  string          `json:"username,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Cookies   []SessionCookie `json:"cookies,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseSessionPayload decodes a vault payload, keeping the original bytes
// around for engines that import the whole session object.
func ParseSessionPayload(raw []byte) (*SessionPayload, error) {
	var p SessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	return &p, nil
}

// ExpiresAt converts the cookie's epoch expiry to a time.Time; the zero
// value means a session cookie with no expiry.
func (c SessionCookie) ExpiresAt() time.Time {
	if c.Expires <= 0 {
		return time.Time{}
	}
	sec := int64(c.Expires)
	nsec := int64((c.Expires - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
