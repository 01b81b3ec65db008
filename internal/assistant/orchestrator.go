package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/internal/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	MaxMessageLength   = 4000
	MaxSessionIDLength = 128

	listingFetchLimit   = 50
	historyLimit        = 10
	latestListingsShown = 3

	tracerName = "github.com/mkulima/asha/internal/assistant"
)

// SessionStore persists dialogue state and history. Implemented by
// services.ConversationStore.
type SessionStore interface {
	LoadSession(ctx context.Context, sessionID, uid string) (models.SessionState, error)
	SaveSession(ctx context.Context, sessionID, uid string, state models.SessionState) error
	AppendMessage(ctx context.Context, sessionID, uid string, role models.Role, text string)
	LoadHistory(ctx context.Context, sessionID, uid string, limit int) []models.Message
}

// Marketplace reads listings, farms and profiles. Implemented by Catalog.
type Marketplace interface {
	ActiveListings(ctx context.Context, limit int) ([]models.Listing, error)
	Farm(ctx context.Context, uid, farmID string) (*models.Farm, error)
	FirstFarm(ctx context.Context, uid string) (*models.Farm, error)
	Profile(ctx context.Context, uid string) (*models.Profile, error)
}

// Forecaster fetches forecast JSON for a point. Implemented by
// services.ForecastClient.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// Completer answers free-form questions. Implemented by services.LLMFallback.
type Completer interface {
	Complete(ctx context.Context, history []models.Message, message string, language models.Language, fallback string) string
}

// Orchestrator runs one chat turn: it validates the request, loads the
// session, picks a branch from the stage and intent, calls collaborators,
// persists the new state and history, and builds the response.
//
// Collaborator failures (listings, farms, profiles, forecasts, history)
// degrade to fixed replies. Only validation, session ownership and the
// final state save can fail a turn.
type Orchestrator struct {
	sessions  SessionStore
	catalog   Marketplace
	forecasts Forecaster
	llm       Completer
	tracer    trace.Tracer
}

// NewOrchestrator wires an orchestrator.
//
// Example:
//
//	orchestrator := assistant.NewOrchestrator(
//	    services.NewConversationStore(db),
//	    assistant.NewCatalog(store),
//	    services.NewForecastClient(cfg.Forecast.URL, nil, forecastCache, cfg.Cache.ForecastTTL),
//	    services.NewLLMFallback(model),
//	)
func NewOrchestrator(sessions SessionStore, catalog Marketplace, forecasts Forecaster, llm Completer) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		catalog:   catalog,
		forecasts: forecasts,
		llm:       llm,
		tracer:    otel.Tracer(tracerName),
	}
}

// turn accumulates the outcome of one request.
type turn struct {
	uid     string
	req     models.ChatRequest
	state   models.SessionState
	intent  models.Intent
	reply   string
	actions []models.Action
	hint    *models.UIHint
}

func (t *turn) emit(actionType models.ActionType, payload map[string]any) {
	t.actions = append(t.actions, models.Action{Type: actionType, Payload: payload})
}

func (t *turn) navigate(to string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["to"] = to
	t.emit(models.ActionNavigate, payload)
	if t.hint == nil {
		t.hint = &models.UIHint{}
	}
	t.hint.NavigateTo = to
}

// HandleTurn processes one chat message from uid.
//
// Errors:
//   - Validation: malformed request fields (no side effects)
//   - Forbidden: the session belongs to another user
//   - anything else: the final state save failed
func (o *Orchestrator) HandleTurn(ctx context.Context, uid string, req models.ChatRequest) (*models.ChatResponse, error) {
	req, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "assistant.HandleTurn",
		trace.WithAttributes(attribute.String("asha.session_id", req.SessionID)))
	defer span.End()

	state, err := o.sessions.LoadSession(ctx, req.SessionID, uid)
	if err != nil {
		return nil, err
	}
	state.Language = req.Language

	t := &turn{uid: uid, req: req, state: state, actions: []models.Action{}}
	o.dispatch(ctx, t)
	t.state.LastIntent = t.intent

	if err := o.sessions.SaveSession(ctx, req.SessionID, uid, t.state); err != nil {
		return nil, fmt.Errorf("failed to persist turn: %w", err)
	}
	o.sessions.AppendMessage(ctx, req.SessionID, uid, models.RoleUser, req.Message)
	o.sessions.AppendMessage(ctx, req.SessionID, uid, models.RoleAssistant, t.reply)

	metrics.IncrementChatTurn(string(t.intent))
	span.SetAttributes(
		attribute.String("asha.intent", string(t.intent)),
		attribute.String("asha.stage", string(t.state.Stage)),
		attribute.Int("asha.actions", len(t.actions)),
	)
	log.Info().
		Str("uid", uid).
		Str("session_id", req.SessionID).
		Str("intent", string(t.intent)).
		Str("stage", string(t.state.Stage)).
		Int("actions", len(t.actions)).
		Msg("Chat turn handled")

	return &models.ChatResponse{
		OK:      true,
		Reply:   t.reply,
		Intent:  t.intent,
		Actions: t.actions,
		UIHint:  t.hint,
		Memory:  t.state,
	}, nil
}

// ValidateRequest trims and checks a chat request and fills in defaults.
func ValidateRequest(req models.ChatRequest) (models.ChatRequest, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return req, apperr.Validation("sessionId is required")
	}
	if len(req.SessionID) > MaxSessionIDLength {
		return req, apperr.Validation("sessionId must be at most %d characters", MaxSessionIDLength)
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, apperr.Validation("message is required")
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		return req, apperr.Validation("message must be at most %d characters", MaxMessageLength)
	}

	switch req.Language {
	case "":
		req.Language = models.LanguageEnglish
	case models.LanguageEnglish, models.LanguageSwahili:
	default:
		return req, apperr.Validation(`language must be "en" or "sw"`)
	}

	if req.ClientContext.CartCount != nil && *req.ClientContext.CartCount < 0 {
		return req, apperr.Validation("cartCount must not be negative")
	}
	return req, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, t *turn) {
	message := t.req.Message

	if t.state.Stage == models.StageConfirmCheckout && t.state.PendingAction == models.PendingCheckout {
		if event, ok := ParseConfirmation(message); ok {
			o.confirm(t, event)
			return
		}
	}

	t.intent = Classify(message, t.req.ClientContext, t.state)

	if t.state.Stage == models.StageCollectProfile {
		o.collectProfile(t)
		return
	}

	switch t.intent {
	case models.IntentMarketplace:
		o.marketplace(ctx, t)
	case models.IntentClimate:
		o.climate(ctx, t)
	case models.IntentOrders:
		o.orders(ctx, t)
	case models.IntentProfile:
		o.profile(ctx, t)
	default:
		o.general(ctx, t)
	}
}

func (o *Orchestrator) confirm(t *turn, event Event) {
	t.state, _ = Transition(t.state, event)
	t.intent = models.IntentOrders

	if event == EventConfirmYes {
		t.emit(models.ActionOpenCart, nil)
		t.emit(models.ActionCheckout, nil)
		t.hint = &models.UIHint{NavigateTo: "/checkout"}
		t.reply = say(t.state.Language, replyCheckoutConfirmed)
		return
	}
	t.reply = say(t.state.Language, replyCheckoutDeclined)
}

// collectProfile merges fields found in the message into the draft and
// either asks for what is still missing or moves on to confirmation.
// Newly typed values replace drafted ones.
func (o *Orchestrator) collectProfile(t *turn) {
	t.intent = models.IntentOrders
	t.state.ProfileDraft = ExtractProfile(t.req.Message).Merge(t.state.ProfileDraft)
	o.askOrConfirm(t)
}

func (o *Orchestrator) askOrConfirm(t *turn) {
	draft := t.state.ProfileDraft
	language := t.state.Language

	if missing := draft.Missing(); len(missing) > 0 {
		t.state, _ = Transition(t.state, EventProfileIncomplete)
		t.reply = say(language, replyAskProfile, describeFields(language, missing))
		return
	}

	t.state, _ = Transition(t.state, EventProfileComplete)
	t.emit(models.ActionPrefillCheckout, map[string]any{
		"fullName": draft.FullName,
		"phone":    draft.Phone,
		"county":   draft.County,
		"ward":     draft.Ward,
		"address":  draft.Address,
	})
	t.reply = say(language, replyProfileReady, draft.FullName, draft.Address, draft.Ward, draft.County, draft.Phone)
}

var cartPattern = regexp.MustCompile(`\b(cart|kikapu)\b`)

func (o *Orchestrator) marketplace(ctx context.Context, t *turn) {
	language := t.state.Language

	listings, err := o.catalog.ActiveListings(ctx, listingFetchLimit)
	listingsFailed := err != nil
	if err != nil {
		log.Warn().Err(err).Str("uid", t.uid).Msg("Failed to fetch listings")
	}

	keyword := CropKeyword(t.req.Message)
	var origin *models.Coordinates
	if farm := o.resolveFarm(ctx, t.uid, t.req.ClientContext.ActiveFarmID, t.state.LastFarmID); farm != nil {
		c := farm.Coordinates()
		origin = &c
	}
	matches := Rank(listings, keyword, origin)
	best := pickBest(matches, keyword, t.state.LastListingID)
	wantsCart := cartPattern.MatchString(strings.ToLower(t.req.Message))

	switch {
	case wantsCart && best != nil:
		t.state.LastListingID = best.ID
		t.emit(models.ActionOpenListing, map[string]any{"listingId": best.ID})
		t.emit(models.ActionAddToCart, map[string]any{"listingId": best.ID, "quantity": 1})
		t.hint = &models.UIHint{HighlightID: best.ID}
		t.reply = say(language, replyAddToCart, describeListing(*best))

	case keyword != "" && best != nil:
		t.state.LastListingID = best.ID
		t.emit(models.ActionOpenListing, map[string]any{"listingId": best.ID})
		t.hint = &models.UIHint{HighlightID: best.ID}
		t.reply = say(language, replyOpenListing, describeListing(*best))

	case listingsFailed:
		t.reply = say(language, replyListingsUnavailable)
		t.navigate("/marketplace", nil)

	case keyword != "":
		t.reply = say(language, replyNoCropListings, keyword)
		t.navigate("/marketplace", map[string]any{"crop": keyword})

	case len(listings) == 0:
		t.reply = say(language, replyNoListings)
		t.navigate("/marketplace", nil)

	default:
		shown := listings
		if len(shown) > latestListingsShown {
			shown = shown[:latestListingsShown]
		}
		titles := make([]string, len(shown))
		for i, l := range shown {
			titles[i] = describeListing(l)
		}
		t.reply = say(language, replyLatestListings, strings.Join(titles, "; "))
		t.navigate("/marketplace", nil)
	}
}

// pickBest chooses the listing a marketplace turn acts on. With a keyword
// the top match must contain it; without one the previously opened listing
// wins, then the top-ranked listing.
func pickBest(matches []models.ListingMatch, keyword, lastListingID string) *models.Listing {
	if len(matches) == 0 {
		return nil
	}
	if keyword != "" {
		top := matches[0].Listing
		if matchesKeyword(top, keyword) {
			return &top
		}
		return nil
	}
	if lastListingID != "" {
		for _, m := range matches {
			if m.Listing.ID == lastListingID {
				l := m.Listing
				return &l
			}
		}
	}
	top := matches[0].Listing
	return &top
}

// describeListing renders a listing as "Fresh tomatoes (Nakuru, KES 120/kg)".
func describeListing(l models.Listing) string {
	var details []string
	if l.Location != nil && l.Location.County != "" {
		details = append(details, l.Location.County)
	}
	if l.PricePerUnit > 0 {
		price := l.Currency + " " + strconv.FormatFloat(l.PricePerUnit, 'f', -1, 64)
		if l.Unit != "" {
			price += "/" + l.Unit
		}
		details = append(details, price)
	}
	if len(details) == 0 {
		return l.Title
	}
	return l.Title + " (" + strings.Join(details, ", ") + ")"
}

func (o *Orchestrator) climate(ctx context.Context, t *turn) {
	language := t.state.Language

	farm := o.resolveFarm(ctx, t.uid, t.req.ClientContext.ActiveFarmID, t.state.LastFarmID)
	if farm == nil {
		first, err := o.catalog.FirstFarm(ctx, t.uid)
		if err != nil {
			log.Warn().Err(err).Str("uid", t.uid).Msg("Failed to look up farms")
		}
		farm = first
	}
	if farm == nil {
		t.reply = say(language, replySelectFarm)
		return
	}

	t.state.LastFarmID = farm.ID
	name := farm.Name
	if name == "" {
		name = farm.ID
	}

	payload := map[string]any{"farmId": farm.ID}
	var forecast json.RawMessage
	var err error
	if point := farm.Coordinates(); point.Valid() {
		forecast, err = o.forecasts.Forecast(ctx, point.Lat, point.Lon)
	} else {
		err = fmt.Errorf("farm %s has no coordinates", farm.ID)
	}

	if err != nil {
		log.Warn().Err(err).Str("farm_id", farm.ID).Msg("Forecast unavailable")
		t.reply = say(language, replyForecastUnavailable, name)
	} else {
		payload["forecast"] = forecast
		t.reply = say(language, replyForecastReady, name)
	}
	t.navigate("/climate", payload)
	t.hint.HighlightID = farm.ID
}

func (o *Orchestrator) orders(ctx context.Context, t *turn) {
	stored, err := o.catalog.Profile(ctx, t.uid)
	if err != nil {
		log.Warn().Err(err).Str("uid", t.uid).Msg("Failed to fetch profile")
	}
	if stored != nil {
		t.state.ProfileDraft = t.state.ProfileDraft.Merge(*stored)
	}
	o.askOrConfirm(t)
}

func (o *Orchestrator) profile(ctx context.Context, t *turn) {
	language := t.state.Language

	stored, err := o.catalog.Profile(ctx, t.uid)
	if err != nil {
		log.Warn().Err(err).Str("uid", t.uid).Msg("Failed to fetch profile")
		t.reply = say(language, replyProfileUnavailable)
		return
	}
	if stored == nil {
		t.state, _ = Transition(t.state, EventProfileIncomplete)
		t.reply = say(language, replyAskProfile, describeFields(language, t.state.ProfileDraft.Missing()))
		return
	}

	t.reply = say(language, replyProfileSummary,
		orDash(stored.FullName), orDash(stored.Phone), orDash(stored.County), orDash(stored.Ward), orDash(stored.Address))
}

func (o *Orchestrator) general(ctx context.Context, t *turn) {
	history := o.sessions.LoadHistory(ctx, t.req.SessionID, t.uid, historyLimit)
	fallback := say(t.state.Language, replyFallback)
	t.reply = o.llm.Complete(ctx, history, t.req.Message, t.state.Language, fallback)
}

// resolveFarm returns the first of farmIDs that exists and belongs to uid.
func (o *Orchestrator) resolveFarm(ctx context.Context, uid string, farmIDs ...string) *models.Farm {
	for _, id := range farmIDs {
		if id == "" {
			continue
		}
		farm, err := o.catalog.Farm(ctx, uid, id)
		if err != nil {
			log.Warn().Err(err).Str("farm_id", id).Msg("Failed to fetch farm")
			continue
		}
		if farm != nil {
			return farm
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
