package event

type Type string

const (
	TypeSessionCreated  Type = "session.created"
	TypeSessionTokenSet Type = "session.token_set"
	TypeSessionUserSet  Type = "session.user_set"
	TypeSessionCleared  Type = "session.cleared"
	TypeGuardDenied     Type = "guard.denied"
	TypeExpiryWarning   Type = "session.expiring_soon"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
	// SessionKey routes the event to the websocket clients of one session.
	SessionKey string `json:"-"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
