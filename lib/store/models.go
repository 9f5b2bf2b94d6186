package store

import "time"

// Session contains the fields of an authentication session saved to DB. There is at most one session per client
// id. Key is the sealed private key of the user.
type Session struct {
	ClientID    string    `json:"clientId" bson:"_id"`
	Verifier    string    `json:"verifier" bson:"verifier"`
	VerifierID  string    `json:"verifierId" bson:"verifierId"`
	TypeOfLogin string    `json:"typeOfLogin" bson:"typeOfLogin"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	Name        string    `json:"name,omitempty" bson:"name,omitempty"`
	Curve       string    `json:"curve" bson:"curve"`
	Index       uint32    `json:"index" bson:"index"`
	Key         []byte    `json:"key" bson:"key"`
	IDToken     string    `json:"idToken" bson:"idToken"`
	Expires     time.Time `json:"expires" bson:"expires"`
}

// Expired reports whether the session is no longer valid at t.
func (s Session) Expired(t time.Time) bool {
	return !t.Before(s.Expires)
}

// Event contains the fields of an adapter lifecycle event saved to DB by the listener.
type Event struct {
	ClientID    string    `json:"clientId" bson:"clientId"`
	Name        string    `json:"name" bson:"name"`
	Adapter     string    `json:"adapter,omitempty" bson:"adapter,omitempty"`
	Reconnected bool      `json:"reconnected,omitempty" bson:"reconnected,omitempty"`
	Error       string    `json:"error,omitempty" bson:"error,omitempty"`
	TS          time.Time `json:"ts" bson:"ts"`
}
