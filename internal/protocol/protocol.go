// Package protocol defines the JSON frames exchanged with clients. Every
// frame carries a "type" discriminator.
package protocol

import "time"

// Client -> server frame types
const (
	TypeRegister = "register"
	TypeChat     = "chat"
	TypeWin      = "win"
	TypePing     = "ping"
)

// Server -> client frame types
const (
	TypeInit          = "init"
	TypeRegisterOK    = "register_ok"
	TypeRegisterError = "register_error"
	TypeSystemMessage = "system_message"
	TypeOnlineCount   = "online_count"
	TypePong          = "pong"
	TypeError         = "error"
)

// Inbound is the single decode target for client frames. Unused fields stay
// zero; a frame whose payload does not decode (e.g. a fractional amount) is
// dropped by the dispatcher.
type Inbound struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname,omitempty"`
	Text     string `json:"text,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
	Game     string `json:"game,omitempty"`
}

// Init is sent once to every newly admitted connection.
type Init struct {
	Type        string        `json:"type"`
	ClientID    string        `json:"clientId"`
	ChatHistory []ChatMessage `json:"chatHistory"`
	WinHistory  []WinMessage  `json:"winHistory"`
	OnlineCount int           `json:"onlineCount"`
}

// RegisterOK confirms a successful nickname registration.
type RegisterOK struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	ClientID string `json:"clientId"`
}

// RegisterError rejects a registration attempt.
type RegisterError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatMessage carries a user chat line (type "chat") or a system
// announcement (type "system_message", text and time only). Both shapes
// live in the chat history buffer.
type ChatMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

// WinMessage announces a win event.
type WinMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Nickname string `json:"nickname"`
	Amount   int64  `json:"amount"`
	Game     string `json:"game"`
	Time     string `json:"time"`
}

// OnlineCount carries the live connection count.
type OnlineCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Pong answers a client ping frame.
type Pong struct {
	Type string `json:"type"`
}

// ErrorMessage is a typed error reply; the connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Timestamp renders t as the human-readable clock-time string used in all
// outbound frames.
func Timestamp(t time.Time) string {
	return t.Format("15:04:05")
}
