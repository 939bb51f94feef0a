package ussd

import (
	"io"
	"net/http"
	"strings"
)

// Handler adapts the menu to the Africa's Talking callback shape: a form
// POST carrying sessionId, phoneNumber and the full dialed text, answered
// with a plain-text "CON <prompt>" (continue) or "END <prompt>" (hang up).
type Handler struct {
	menu *Menu
	log  interface{ Error(format string, args ...any) }
}

// NewHandler wraps a menu in the gateway HTTP contract.
func NewHandler(menu *Menu, log interface{ Error(format string, args ...any) }) *Handler {
	return &Handler{menu: menu, log: log}
}

// StepInput extracts the current step's input from the cumulative dialed
// text: the segment after the last '*'.
func StepInput(text string) string {
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "*")
	return parts[len(parts)-1]
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	env := Env{
		SessionID:   r.PostFormValue("sessionId"),
		PhoneNumber: r.PostFormValue("phoneNumber"),
		Input:       StepInput(r.PostFormValue("text")),
	}
	if env.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	reply := h.menu.Handle(r.Context(), env)

	prefix := "CON "
	if reply.End {
		prefix = "END "
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, prefix+reply.Prompt); err != nil && h.log != nil {
		h.log.Error("writing ussd response: %v", err)
	}
}
