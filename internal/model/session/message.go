package session

import "time"

// Message source tags distinguish how a queued message entered the
// system.
const (
	SourceVoice   = "voice"   // assistant tool-call during a voice turn
	SourceWebhook = "webhook" // direct/broadcast webhook message
)

// Message is a single chat message queued for delivery to a browser
// session. Messages are held in per-session FIFO queues and removed
// as a batch when a stream drains them.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
