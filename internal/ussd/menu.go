// Package ussd implements a small phone-menu engine over the protocol shape
// USSD gateways deliver: a session id, a phone number, and the free text the
// caller has typed so far. States own their prompts; transitions are driven
// by input-pattern matches.
package ussd

import (
	"context"
	"regexp"
	"strings"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// Env carries one menu event.
type Env struct {
	SessionID   string
	PhoneNumber string
	Input       string // last step input (final *-segment of the raw text)
}

// Reply is the prompt returned to the caller. End terminates the call.
type Reply struct {
	Prompt string
	End    bool
}

// RunFunc produces a state's prompt, performing the state's side effects.
// Display states must be idempotent: the engine re-runs them on unmatched
// input.
type RunFunc func(ctx context.Context, env Env) (Reply, error)

// Transition maps an input pattern to the next state. A pattern starting
// with '*' is a regular expression applied to the whole input; anything else
// matches exactly. Patterns are tried in registration order.
type Transition struct {
	Pattern string
	To      string
}

// State is one menu node.
type State struct {
	Run  RunFunc
	Next []Transition
}

// StateStore persists which state a session is in between menu events.
type StateStore interface {
	// CurrentState returns the session's state name, or ErrSessionExpired
	// when the session is absent or past expiry.
	CurrentState(ctx context.Context, sessionID, phoneNumber string) (string, error)

	// SetState records the session's state name, creating the session if
	// needed.
	SetState(ctx context.Context, sessionID, phoneNumber, state string) error

	// Reset deletes the session.
	Reset(ctx context.Context, sessionID string) error
}

// ErrorRenderer converts a handler error into the user-facing prompt text.
// The engine never exposes raw error strings over the phone channel.
type ErrorRenderer func(err error) string

// Menu is the state machine. Safe for concurrent use across sessions once
// built; registration is not safe after the first Handle call.
type Menu struct {
	start    string
	states   map[string]*State
	patterns map[string][]compiledTransition
	store    StateStore
	render   ErrorRenderer
}

type compiledTransition struct {
	exact string
	re    *regexp.Regexp
	to    string
}

// NewMenu creates a menu whose first state is start.
func NewMenu(start string, store StateStore, render ErrorRenderer) *Menu {
	if render == nil {
		render = func(error) string { return "System error. Please try again." }
	}
	return &Menu{
		start:    start,
		states:   make(map[string]*State),
		patterns: make(map[string][]compiledTransition),
		store:    store,
		render:   render,
	}
}

// State registers a state under the given name. Registering a duplicate name
// panics: the state table is static wiring, not runtime input.
func (m *Menu) State(name string, st *State) {
	if _, dup := m.states[name]; dup {
		panic("ussd: duplicate state " + name)
	}
	m.states[name] = st

	compiled := make([]compiledTransition, 0, len(st.Next))
	for _, t := range st.Next {
		ct := compiledTransition{to: t.To}
		if rest, ok := strings.CutPrefix(t.Pattern, "*"); ok {
			ct.re = regexp.MustCompile(rest)
		} else {
			ct.exact = t.Pattern
		}
		compiled = append(compiled, ct)
	}
	m.patterns[name] = compiled
}

// Handle processes one menu event and returns the reply prompt.
//
// A fresh or expired session starts at the start state. Input is matched
// against the current state's transitions; on a match the next state runs,
// otherwise the current state re-runs (re-displaying its prompt). Validation
// errors keep the session in its previous state so the caller can retry;
// session expiry and unclassified errors end the call.
func (m *Menu) Handle(ctx context.Context, env Env) Reply {
	current, err := m.store.CurrentState(ctx, env.SessionID, env.PhoneNumber)
	fresh := false
	if err != nil {
		if !dialerr.Is(err, dialerr.ErrSessionExpired) {
			return Reply{Prompt: m.render(err), End: true}
		}
		current, fresh = m.start, true
	}

	target := current
	if fresh || env.Input == "" {
		target = current
	} else if next, ok := m.match(current, env.Input); ok {
		target = next
	}

	state, ok := m.states[target]
	if !ok {
		// Unknown persisted state means the flow table changed under a live
		// session; restart rather than strand the caller.
		target = m.start
		state = m.states[target]
	}

	if err := m.store.SetState(ctx, env.SessionID, env.PhoneNumber, target); err != nil {
		return Reply{Prompt: m.render(err), End: true}
	}

	reply, err := state.Run(ctx, env)
	switch {
	case err == nil:
		if reply.End {
			_ = m.store.Reset(ctx, env.SessionID)
		}
		return reply

	case dialerr.Is(err, dialerr.ErrValidation),
		dialerr.Is(err, dialerr.ErrInvalidAmount),
		dialerr.Is(err, dialerr.ErrInvalidCredentials):
		// Keep the caller on the previous state and re-prompt.
		if serr := m.store.SetState(ctx, env.SessionID, env.PhoneNumber, current); serr != nil {
			return Reply{Prompt: m.render(serr), End: true}
		}
		return Reply{Prompt: m.render(err)}

	case dialerr.Is(err, dialerr.ErrSessionExpired):
		_ = m.store.Reset(ctx, env.SessionID)
		return Reply{Prompt: m.render(err), End: true}

	default:
		return Reply{Prompt: m.render(err), End: true}
	}
}

func (m *Menu) match(state, input string) (string, bool) {
	for _, t := range m.patterns[state] {
		if t.re != nil {
			if t.re.MatchString(input) {
				return t.to, true
			}
			continue
		}
		if t.exact == input {
			return t.to, true
		}
	}
	return "", false
}
