package helpers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/identity"
	"github.com/xiaot623/gptchat/mockapi"
)

// MockEnv is a running mock backend with one public assistant.
type MockEnv struct {
	Backend   *mockapi.Backend
	Server    *httptest.Server
	Assistant domain.Assistant
}

// NewMockEnv starts a mock backend on an httptest server.
func NewMockEnv(t *testing.T, opts ...mockapi.Option) *MockEnv {
	t.Helper()

	backend := mockapi.NewBackend()
	assistant := backend.AddAssistant("", domain.Assistant{
		Name:   "Test Bot",
		Public: true,
		Config: domain.AssistantConfig{Configurable: map[string]interface{}{"type": "chatbot"}},
	})

	server := httptest.NewServer(mockapi.NewServer(backend, opts...))
	t.Cleanup(server.Close)

	return &MockEnv{Backend: backend, Server: server, Assistant: assistant}
}

// Client returns a client authenticated as userID.
func (m *MockEnv) Client(userID string) *client.Client {
	return client.NewClient(m.Server.URL, identity.NewSession(userID), 5*time.Second,
		client.WithStreamTimeout(10*time.Second))
}
