// Package models defines the domain types shared by the storage, assistant
// and HTTP layers: dialogue session state, chat messages, marketplace
// listings, farms, caller profiles and logistics routes.
//
// JSON tags follow the web client's camelCase contract; db tags name the
// relational columns.
package models

import (
	"encoding/json"
	"time"
)

// Stage is the dialogue stage of a session.
type Stage string

const (
	StageChat            Stage = "chat"
	StageCollectProfile  Stage = "collect_profile"
	StageConfirmCheckout Stage = "confirm_checkout"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageChat, StageCollectProfile, StageConfirmCheckout:
		return true
	}
	return false
}

// PendingAction is an action awaiting the caller's confirmation. The zero
// value means nothing is pending and is serialised as JSON null.
type PendingAction string

const (
	PendingNone     PendingAction = ""
	PendingCheckout PendingAction = "checkout"
)

func (p PendingAction) MarshalJSON() ([]byte, error) {
	if p == PendingNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *PendingAction) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PendingNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = PendingAction(s)
	return nil
}

// Intent is the classified conversational topic of a turn.
type Intent string

const (
	IntentMarketplace Intent = "marketplace"
	IntentClimate     Intent = "climate"
	IntentOrders      Intent = "orders"
	IntentProfile     Intent = "profile"
	IntentGeneral     Intent = "general"
)

// Language is a reply language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSwahili Language = "sw"
)

// Profile holds the checkout fields collected from the caller. Every field
// is required before checkout can be confirmed.
type Profile struct {
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	County   string `json:"county,omitempty"`
	Ward     string `json:"ward,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Merge returns p with empty fields filled from other.
func (p Profile) Merge(other Profile) Profile {
	if p.FullName == "" {
		p.FullName = other.FullName
	}
	if p.Phone == "" {
		p.Phone = other.Phone
	}
	if p.County == "" {
		p.County = other.County
	}
	if p.Ward == "" {
		p.Ward = other.Ward
	}
	if p.Address == "" {
		p.Address = other.Address
	}
	return p
}

// Missing returns the names of empty fields in the fixed order
// name, phone, county, ward, address.
func (p Profile) Missing() []string {
	var missing []string
	if p.FullName == "" {
		missing = append(missing, "name")
	}
	if p.Phone == "" {
		missing = append(missing, "phone")
	}
	if p.County == "" {
		missing = append(missing, "county")
	}
	if p.Ward == "" {
		missing = append(missing, "ward")
	}
	if p.Address == "" {
		missing = append(missing, "address")
	}
	return missing
}

// Complete reports whether every checkout field is present.
func (p Profile) Complete() bool {
	return len(p.Missing()) == 0
}

// SessionState is the persisted dialogue memory of one (sessionId, uid)
// pair. It is returned to the client as "memory" on every turn.
//
// JSON example:
//
//	{
//	  "language": "en",
//	  "stage": "confirm_checkout",
//	  "lastIntent": "orders",
//	  "lastListingId": "lst_8f2",
//	  "lastFarmId": "farm_12",
//	  "pendingAction": "checkout",
//	  "profileDraft": {"fullName": "Achieng Otieno", "phone": "0712345678"}
//	}
type SessionState struct {
	Language      Language      `json:"language"`
	Stage         Stage         `json:"stage"`
	LastIntent    Intent        `json:"lastIntent,omitempty"`
	LastListingID string        `json:"lastListingId,omitempty"`
	LastFarmID    string        `json:"lastFarmId,omitempty"`
	PendingAction PendingAction `json:"pendingAction"`
	ProfileDraft  Profile       `json:"profileDraft"`
}

// DefaultSessionState is the state of a session that has never been saved.
func DefaultSessionState() SessionState {
	return SessionState{Language: LanguageEnglish, Stage: StageChat}
}

// Normalize repairs fields a stored row may have left empty or invalid.
func (s SessionState) Normalize() SessionState {
	if !s.Stage.Valid() {
		s.Stage = StageChat
	}
	if s.Language == "" {
		s.Language = LanguageEnglish
	}
	return s
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's append-only history.
type Message struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"sessionId" db:"session_id"`
	UID       string    `json:"uid" db:"uid"`
	Role      Role      `json:"role" db:"role"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SessionRecord is a stored session row.
type SessionRecord struct {
	SessionID string       `json:"sessionId" db:"session_id"`
	UID       string       `json:"uid" db:"uid"`
	State     SessionState `json:"state" db:"state"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}
