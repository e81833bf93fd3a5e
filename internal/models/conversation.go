package models

// Role identifies who authored a turn in the transcript
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnStatus is the lifecycle of a single turn
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"
	TurnStreaming TurnStatus = "streaming"
	TurnComplete  TurnStatus = "complete"
	TurnFailed    TurnStatus = "failed"
)

// WelcomeTurnID marks the seeded assistant greeting; it is shown in the
// transcript but never serialized into request history.
const WelcomeTurnID = "welcome"

// Turn is one message in the conversation transcript
type Turn struct {
	ID      string
	Role    Role
	Content string
	Sources []string
	Status  TurnStatus
}

// Clone returns a value copy safe to hand outside the owning component
func (t Turn) Clone() Turn {
	c := t
	if t.Sources != nil {
		c.Sources = append([]string(nil), t.Sources...)
	}
	return c
}

// Tones accepted by the backend prompt builder
var Tones = []string{"Corporate", "Conversational", "Casual", "Gen Z"}

const DefaultTone = "Conversational"

// ValidTone reports whether tone is one of the known labels
func ValidTone(tone string) bool {
	for _, t := range Tones {
		if t == tone {
			return true
		}
	}
	return false
}
