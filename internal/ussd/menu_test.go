package ussd

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// memStateStore keeps session states in a map.
type memStateStore struct {
	states map[string]string
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]string)}
}

func (m *memStateStore) CurrentState(_ context.Context, sessionID, _ string) (string, error) {
	s, ok := m.states[sessionID]
	if !ok {
		return "", dialerr.ErrSessionExpired
	}
	return s, nil
}

func (m *memStateStore) SetState(_ context.Context, sessionID, _, state string) error {
	m.states[sessionID] = state
	return nil
}

func (m *memStateStore) Reset(_ context.Context, sessionID string) error {
	delete(m.states, sessionID)
	return nil
}

func prompt(text string) RunFunc {
	return func(context.Context, Env) (Reply, error) {
		return Reply{Prompt: text}, nil
	}
}

func newTestMenu(store StateStore) *Menu {
	m := NewMenu("home", store, func(err error) string {
		if dialerr.Is(err, dialerr.ErrValidation) {
			return "Invalid input."
		}
		return "System error."
	})

	m.State("home", &State{
		Run: prompt("1. Greet\n2. Digits"),
		Next: []Transition{
			{Pattern: "1", To: "greet"},
			{Pattern: "2", To: "digits"},
		},
	})
	m.State("greet", &State{
		Run: func(_ context.Context, env Env) (Reply, error) {
			return Reply{Prompt: "Hello " + env.PhoneNumber, End: true}, nil
		},
	})
	m.State("digits", &State{
		Run: prompt("Enter 6 digits:"),
		Next: []Transition{
			{Pattern: `*^\d{6}$`, To: "done"},
		},
	})
	m.State("done", &State{
		Run: func(_ context.Context, env Env) (Reply, error) {
			if env.Input == "000000" {
				return Reply{}, dialerr.ErrValidation
			}
			return Reply{Prompt: "Accepted " + env.Input, End: true}, nil
		},
	})
	return m
}

func TestMenu_FreshSessionStartsAtHome(t *testing.T) {
	store := newMemStateStore()
	m := newTestMenu(store)

	reply := m.Handle(context.Background(), Env{SessionID: "s1"})
	assert.Contains(t, reply.Prompt, "1. Greet")
	assert.False(t, reply.End)
	assert.Equal(t, "home", store.states["s1"])
}

func TestMenu_ExactTransition(t *testing.T) {
	store := newMemStateStore()
	m := newTestMenu(store)

	m.Handle(context.Background(), Env{SessionID: "s1"})
	reply := m.Handle(context.Background(), Env{SessionID: "s1", PhoneNumber: "+123", Input: "1"})

	assert.Equal(t, "Hello +123", reply.Prompt)
	assert.True(t, reply.End)
	// Terminal replies reset the session.
	_, ok := store.states["s1"]
	assert.False(t, ok)
}

func TestMenu_RegexTransition(t *testing.T) {
	store := newMemStateStore()
	m := newTestMenu(store)

	m.Handle(context.Background(), Env{SessionID: "s1"})
	m.Handle(context.Background(), Env{SessionID: "s1", Input: "2"})
	reply := m.Handle(context.Background(), Env{SessionID: "s1", Input: "123456"})

	assert.Equal(t, "Accepted 123456", reply.Prompt)
	assert.True(t, reply.End)
}

func TestMenu_UnmatchedInputRerunsCurrentState(t *testing.T) {
	store := newMemStateStore()
	m := newTestMenu(store)

	m.Handle(context.Background(), Env{SessionID: "s1"})
	m.Handle(context.Background(), Env{SessionID: "s1", Input: "2"})

	// "abc" matches no transition out of digits.
	reply := m.Handle(context.Background(), Env{SessionID: "s1", Input: "abc"})
	assert.Equal(t, "Enter 6 digits:", reply.Prompt)
	assert.Equal(t, "digits", store.states["s1"])
}

func TestMenu_ValidationErrorKeepsPreviousState(t *testing.T) {
	store := newMemStateStore()
	m := newTestMenu(store)

	m.Handle(context.Background(), Env{SessionID: "s1"})
	m.Handle(context.Background(), Env{SessionID: "s1", Input: "2"})

	// "000000" reaches done, which rejects it; the session must fall back
	// to digits so the caller can retry.
	reply := m.Handle(context.Background(), Env{SessionID: "s1", Input: "000000"})
	assert.Equal(t, "Invalid input.", reply.Prompt)
	assert.False(t, reply.End)
	assert.Equal(t, "digits", store.states["s1"])

	reply = m.Handle(context.Background(), Env{SessionID: "s1", Input: "654321"})
	assert.Equal(t, "Accepted 654321", reply.Prompt)
}

func TestMenu_UnknownPersistedStateRestarts(t *testing.T) {
	store := newMemStateStore()
	store.states["s1"] = "removed.state"
	m := newTestMenu(store)

	reply := m.Handle(context.Background(), Env{SessionID: "s1", Input: "9"})
	assert.Contains(t, reply.Prompt, "1. Greet")
}

func TestStepInput(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", ""},
		{"1", "1"},
		{"1*2*135790", "135790"},
		{"1*", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StepInput(tt.text), "text %q", tt.text)
	}
}

func TestHandler_ServeHTTP(t *testing.T) {
	store := newMemStateStore()
	h := NewHandler(newTestMenu(store), nil)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/ussd", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := post(url.Values{"sessionId": {"s1"}, "phoneNumber": {"+123"}, "text": {""}})
	require.Equal(t, 200, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "CON "))

	w = post(url.Values{"sessionId": {"s1"}, "phoneNumber": {"+123"}, "text": {"1"}})
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "END Hello +123", w.Body.String())
}

func TestHandler_RequiresSessionID(t *testing.T) {
	h := NewHandler(newTestMenu(newMemStateStore()), nil)

	req := httptest.NewRequest("POST", "/ussd", strings.NewReader("text=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestHandler_RejectsGet(t *testing.T) {
	h := NewHandler(newTestMenu(newMemStateStore()), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/ussd", nil))
	assert.Equal(t, 405, w.Code)
}
