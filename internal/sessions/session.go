// Package sessions keeps editor refresh sessions. A session remembers the
// identity an access token was minted for so it can be reissued on refresh.
package sessions

import "time"

type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	Sub          string    `bson:"sub" json:"sub"`
	Name         string    `bson:"name,omitempty" json:"name,omitempty"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	Roles        []string  `bson:"roles,omitempty" json:"roles,omitempty"`
	Permissions  []string  `bson:"permissions,omitempty" json:"permissions,omitempty"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func (s *Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
