package assistant

import (
	"strings"

	"github.com/mkulima/asha/internal/models"
)

// Event drives a session from one stage to the next.
type Event string

const (
	EventConfirmYes        Event = "confirm_yes"
	EventConfirmNo         Event = "confirm_no"
	EventProfileIncomplete Event = "profile_incomplete"
	EventProfileComplete   Event = "profile_complete"
)

// anyStage matches every stage in the transition table.
const anyStage models.Stage = "*"

type transitionKey struct {
	from  models.Stage
	event Event
}

type transitionTarget struct {
	stage   models.Stage
	pending models.PendingAction
}

// transitions is the session stage machine. Exact (stage, event) entries
// take precedence over anyStage entries.
var transitions = map[transitionKey]transitionTarget{
	{models.StageConfirmCheckout, EventConfirmYes}: {models.StageChat, models.PendingNone},
	{models.StageConfirmCheckout, EventConfirmNo}:  {models.StageChat, models.PendingNone},
	{anyStage, EventProfileIncomplete}:             {models.StageCollectProfile, models.PendingNone},
	{anyStage, EventProfileComplete}:               {models.StageConfirmCheckout, models.PendingCheckout},
}

// Transition applies event to state. Events with no entry for the current
// stage leave the state unchanged and report false.
//
// Example:
//
//	next, ok := assistant.Transition(state, assistant.EventConfirmYes)
//	// next.Stage == models.StageChat, next.PendingAction == models.PendingNone
func Transition(state models.SessionState, event Event) (models.SessionState, bool) {
	target, ok := transitions[transitionKey{state.Stage, event}]
	if !ok {
		target, ok = transitions[transitionKey{anyStage, event}]
	}
	if !ok {
		return state, false
	}
	state.Stage = target.stage
	state.PendingAction = target.pending
	return state, true
}

var (
	yesWords = map[string]bool{"yes": true, "y": true, "ndio": true, "ndiyo": true}
	noWords  = map[string]bool{"no": true, "n": true, "hapana": true}
)

// ParseConfirmation reports whether message is a bare yes or no answer.
// Case and surrounding punctuation are ignored.
func ParseConfirmation(message string) (Event, bool) {
	word := normalizeReply(message)
	switch {
	case yesWords[word]:
		return EventConfirmYes, true
	case noWords[word]:
		return EventConfirmNo, true
	}
	return "", false
}

func normalizeReply(message string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(message)), " .!?,")
}
