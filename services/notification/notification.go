package notification

import (
	"fmt"
	"sync"

	"github.com/olahol/melody"
)

// SessionUserKey is the melody session key holding the authenticated user id.
const SessionUserKey = "userID"

type Service interface {
	SendToUser(userID uint, message string) error
}

// MelodyService pushes messages to the websocket sessions of one user.
type MelodyService struct {
	m *melody.Melody
}

func NewMelodyService(m *melody.Melody) *MelodyService {
	return &MelodyService{m: m}
}

func (s *MelodyService) SendToUser(userID uint, message string) error {
	if s.m == nil {
		return fmt.Errorf("melody instance is nil")
	}
	return s.m.BroadcastFilter([]byte(message), func(session *melody.Session) bool {
		id, ok := session.Get(SessionUserKey)
		if !ok {
			return false
		}
		sessionUserID, ok := id.(uint)
		return ok && sessionUserID == userID
	})
}

// MessageBuilder formats the provider-facing resolution message.
type MessageBuilder struct {
	requestID uint
	amount    int64
	status    string
	notes     string
}

func NewMessageBuilder(requestID uint, amount int64, status string) *MessageBuilder {
	return &MessageBuilder{requestID: requestID, amount: amount, status: status}
}

func (b *MessageBuilder) WithNotes(notes string) *MessageBuilder {
	b.notes = notes
	return b
}

func (b *MessageBuilder) Build() string {
	msg := fmt.Sprintf("🔔 Withdrawal #%d of %s was %s.", b.requestID, FormatCents(b.amount), b.status)
	if b.notes != "" {
		msg += " Note: " + b.notes
	}
	return msg
}

// FormatCents renders an amount in the smallest unit as 123.45.
func FormatCents(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// Message is one delivery captured by MemoryService.
type Message struct {
	UserID uint
	Text   string
}

// MemoryService collects messages instead of pushing them.
type MemoryService struct {
	mu       sync.Mutex
	messages []Message
}

func (s *MemoryService) SendToUser(userID uint, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{UserID: userID, Text: message})
	return nil
}

func (s *MemoryService) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
