package models

// ActionType names a UI action the client should perform.
type ActionType string

const (
	ActionOpenListing     ActionType = "OPEN_LISTING"
	ActionAddToCart       ActionType = "ADD_TO_CART"
	ActionOpenCart        ActionType = "OPEN_CART"
	ActionCheckout        ActionType = "CHECKOUT"
	ActionPrefillCheckout ActionType = "PREFILL_CHECKOUT"
	ActionNavigate        ActionType = "NAVIGATE"
)

// Action is one UI action emitted with a chat reply.
//
// JSON example:
//
//	{"type": "OPEN_LISTING", "payload": {"listingId": "lst_8f2"}}
type Action struct {
	Type    ActionType     `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// UIHint suggests where the client should focus after a reply.
type UIHint struct {
	NavigateTo  string `json:"navigateTo,omitempty"`
	HighlightID string `json:"highlightId,omitempty"`
}

// ClientContext is what the web client knows about the caller's screen.
type ClientContext struct {
	ActiveFarmID string `json:"activeFarmId,omitempty"`
	ActiveTab    string `json:"activeTab,omitempty"`
	CartCount    *int   `json:"cartCount,omitempty"`
}

// ChatRequest is the body of POST /asha/chat.
type ChatRequest struct {
	SessionID     string        `json:"sessionId"`
	Message       string        `json:"message"`
	Language      Language      `json:"language,omitempty"`
	ClientContext ClientContext `json:"clientContext"`
}

// ChatResponse is the body of a successful chat turn.
//
// JSON example:
//
//	{
//	  "ok": true,
//	  "reply": "I found Fresh tomatoes (Nakuru). Opening it for you.",
//	  "intent": "marketplace",
//	  "actions": [{"type": "OPEN_LISTING", "payload": {"listingId": "lst_8f2"}}],
//	  "uiHint": {"highlightId": "lst_8f2"},
//	  "memory": {"language": "en", "stage": "chat", "pendingAction": null, "profileDraft": {}}
//	}
type ChatResponse struct {
	OK      bool         `json:"ok"`
	Reply   string       `json:"reply"`
	Intent  Intent       `json:"intent"`
	Actions []Action     `json:"actions"`
	UIHint  *UIHint      `json:"uiHint"`
	Memory  SessionState `json:"memory"`
}
