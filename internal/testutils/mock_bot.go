package testutils

import (
	"errors"
	"sync"
)

// MockMessage captures a single message sent by MockBot.
type MockMessage struct {
	ID       int
	Text     string
	Keyboard any
}

// MockEdit captures a single EditMessage call.
type MockEdit struct {
	MessageID int
	Text      string
	Keyboard  any
}

// MockBot implements bot.Service for testing. It is safe for use from session goroutines.
type MockBot struct {
	mu sync.Mutex

	SentMessages    []MockMessage
	Edits           []MockEdit
	DeletedMessages []int
	Callbacks       []string
	Files           map[string][]byte

	// SendError, if set, is returned by SendMessage.
	SendError error
	// KeyboardSendError, if set, is returned by SendMessage for messages carrying a keyboard.
	KeyboardSendError error

	nextID int
}

func (m *MockBot) SendMessage(text string, keyboard any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil {
		return 0, m.SendError
	}
	if m.KeyboardSendError != nil && keyboard != nil {
		return 0, m.KeyboardSendError
	}
	m.nextID++
	m.SentMessages = append(m.SentMessages, MockMessage{ID: m.nextID, Text: text, Keyboard: keyboard})
	return m.nextID, nil
}

func (m *MockBot) EditMessage(messageID int, text string, keyboard any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, MockEdit{MessageID: messageID, Text: text, Keyboard: keyboard})
	return nil
}

func (m *MockBot) DeleteMessage(messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedMessages = append(m.DeletedMessages, messageID)
	return nil
}

func (m *MockBot) DownloadFile(fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *MockBot) AnswerCallback(_, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Callbacks = append(m.Callbacks, text)
}

// GetLastMessage returns the most recently sent message, or nil if none.
func (m *MockBot) GetLastMessage() *MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentMessages) == 0 {
		return nil
	}
	msg := m.SentMessages[len(m.SentMessages)-1]
	return &msg
}

// Messages returns a copy of the sent messages.
func (m *MockBot) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.SentMessages...)
}

// EditsFor returns the edits applied to one message, oldest first.
func (m *MockBot) EditsFor(messageID int) []MockEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockEdit
	for _, e := range m.Edits {
		if e.MessageID == messageID {
			out = append(out, e)
		}
	}
	return out
}

// Deleted returns a copy of the deleted message ids.
func (m *MockBot) Deleted() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.DeletedMessages...)
}

// ClearMessages resets everything captured so far.
func (m *MockBot) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = nil
	m.Edits = nil
	m.DeletedMessages = nil
	m.Callbacks = nil
}
