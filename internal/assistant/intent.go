// Package assistant implements Asha's dialogue logic: intent
// classification, listing normalisation and ranking, profile field
// extraction, the session stage machine and the orchestrator that ties them
// to storage and upstream collaborators.
package assistant

import (
	"regexp"
	"strings"

	"github.com/mkulima/asha/internal/models"
)

type intentRule struct {
	pattern *regexp.Regexp
	intent  models.Intent
}

// intentRules are tried in order against the lower-cased message; the
// first match wins.
var intentRules = []intentRule{
	{
		intent: models.IntentMarketplace,
		pattern: regexp.MustCompile(`\b(market\w*|sell\w*|buy\w*|price\w*|listing\w*|produce|soko|nunua|uza|bei)\b|` +
			`\b(?:` + cropPattern + `)(?:es|s)?\b`),
	},
	{
		intent:  models.IntentClimate,
		pattern: regexp.MustCompile(`\b(weather|forecast|rain|rainfall|temperature|climate|drought|hali ya hewa|mvua|jua)\b`),
	},
	{
		intent:  models.IntentOrders,
		pattern: regexp.MustCompile(`\b(order|orders|checkout|check out|cart|pay|payment|delivery|oda|lipa|malipo|kikapu)\b`),
	},
	{
		intent:  models.IntentProfile,
		pattern: regexp.MustCompile(`\b(profile|account|phone|county|ward|address|my details|wasifu|akaunti|simu|kaunti)\b`),
	},
}

// tabIntents maps the client's active tab to an intent.
var tabIntents = map[string]models.Intent{
	"marketplace": models.IntentMarketplace,
	"climate":     models.IntentClimate,
	"orders":      models.IntentOrders,
	"profile":     models.IntentProfile,
	"general":     models.IntentGeneral,
}

// Classify derives the intent of a turn. Precedence, highest first: the
// client's active tab, the rule table, the previous turn's intent, general.
//
// Example:
//
//	intent := assistant.Classify("I want tomatoes", models.ClientContext{}, models.DefaultSessionState())
//	// intent == models.IntentMarketplace
func Classify(message string, client models.ClientContext, prior models.SessionState) models.Intent {
	if intent, ok := tabIntents[strings.ToLower(strings.TrimSpace(client.ActiveTab))]; ok {
		return intent
	}

	text := strings.ToLower(message)
	for _, rule := range intentRules {
		if rule.pattern.MatchString(text) {
			return rule.intent
		}
	}

	if prior.LastIntent != "" {
		return prior.LastIntent
	}
	return models.IntentGeneral
}
