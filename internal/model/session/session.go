package session

import "time"

// Session correlates a browser tab with voice/chat conversation state.
// The identifier is chosen by the client and carries no authentication.
type Session struct {
	ID             string    `json:"sessionId"`
	CustomerName   string    `json:"customerName,omitempty"`
	CustomerDomain string    `json:"customerDomain,omitempty"`
	CustomerEmail  string    `json:"customerEmail,omitempty"`
	CompanyName    string    `json:"companyName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
