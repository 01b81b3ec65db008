package assistant

import (
	"fmt"

	"github.com/mkulima/asha/internal/models"
)

type replyKey int

const (
	replyCheckoutConfirmed replyKey = iota
	replyCheckoutDeclined
	replyAskProfile
	replyProfileReady
	replyProfileSummary
	replyProfileUnavailable
	replyAddToCart
	replyOpenListing
	replyNoCropListings
	replyLatestListings
	replyNoListings
	replyListingsUnavailable
	replySelectFarm
	replyForecastReady
	replyForecastUnavailable
	replyFallback
)

// replies holds the fixed reply templates, formatted with fmt verbs.
var replies = map[replyKey]map[models.Language]string{
	replyCheckoutConfirmed: {
		models.LanguageEnglish: "Great! Opening your cart and checkout now.",
		models.LanguageSwahili: "Sawa! Ninafungua kikapu chako na malipo sasa.",
	},
	replyCheckoutDeclined: {
		models.LanguageEnglish: "No problem, I have not placed the order. Let me know if you need anything else.",
		models.LanguageSwahili: "Sawa, sijaweka oda. Niambie kama unahitaji kitu kingine.",
	},
	replyAskProfile: {
		models.LanguageEnglish: "To complete your order I need your %s. Please share them.",
		models.LanguageSwahili: "Ili kukamilisha oda yako nahitaji %s. Tafadhali nitumie.",
	},
	replyProfileReady: {
		models.LanguageEnglish: "Thanks! I will deliver to %s, %s (%s ward, %s county) and call %s. Shall I proceed to checkout? Reply yes or no.",
		models.LanguageSwahili: "Asante! Nitapeleka kwa %s, %s (wadi ya %s, kaunti ya %s) na kupiga %s. Niendelee na malipo? Jibu ndio au hapana.",
	},
	replyProfileSummary: {
		models.LanguageEnglish: "Here is your profile. Name: %s. Phone: %s. County: %s. Ward: %s. Address: %s.",
		models.LanguageSwahili: "Hii ndiyo wasifu wako. Jina: %s. Simu: %s. Kaunti: %s. Wadi: %s. Anwani: %s.",
	},
	replyProfileUnavailable: {
		models.LanguageEnglish: "I could not fetch your profile yet. Please try again in a moment.",
		models.LanguageSwahili: "Sijaweza kupata wasifu wako bado. Tafadhali jaribu tena baadaye.",
	},
	replyAddToCart: {
		models.LanguageEnglish: "Adding %s to your cart.",
		models.LanguageSwahili: "Ninaongeza %s kwenye kikapu chako.",
	},
	replyOpenListing: {
		models.LanguageEnglish: "I found %s. Opening it for you.",
		models.LanguageSwahili: "Nimepata %s. Ninaifungua sasa.",
	},
	replyNoCropListings: {
		models.LanguageEnglish: "I could not find any %s listings right now. Opening the marketplace so you can browse.",
		models.LanguageSwahili: "Sijapata %s sokoni kwa sasa. Ninafungua soko uweze kuangalia.",
	},
	replyLatestListings: {
		models.LanguageEnglish: "Here are the latest listings: %s.",
		models.LanguageSwahili: "Hizi ndizo bidhaa mpya sokoni: %s.",
	},
	replyNoListings: {
		models.LanguageEnglish: "There are no active listings right now. Opening the marketplace.",
		models.LanguageSwahili: "Hakuna bidhaa sokoni kwa sasa. Ninafungua soko.",
	},
	replyListingsUnavailable: {
		models.LanguageEnglish: "I could not load the marketplace right now. Opening it so you can browse.",
		models.LanguageSwahili: "Sijaweza kupakia soko kwa sasa. Ninalifungua uweze kuangalia.",
	},
	replySelectFarm: {
		models.LanguageEnglish: "Please select a farm first so I can check the weather for it.",
		models.LanguageSwahili: "Tafadhali chagua shamba kwanza ili niangalie hali ya hewa.",
	},
	replyForecastReady: {
		models.LanguageEnglish: "I have the latest forecast for %s. Opening the climate view.",
		models.LanguageSwahili: "Nimepata utabiri wa hali ya hewa wa %s. Ninafungua ukurasa wa hali ya hewa.",
	},
	replyForecastUnavailable: {
		models.LanguageEnglish: "I could not fetch the forecast for %s right now. Opening the climate view.",
		models.LanguageSwahili: "Sijaweza kupata utabiri wa %s kwa sasa. Ninafungua ukurasa wa hali ya hewa.",
	},
	replyFallback: {
		models.LanguageEnglish: "I didn't catch that. Please try again.",
		models.LanguageSwahili: "Samahani, sikuelewa. Tafadhali jaribu tena.",
	},
}

func say(language models.Language, key replyKey, args ...any) string {
	templates := replies[key]
	template, ok := templates[language]
	if !ok {
		template = templates[models.LanguageEnglish]
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}
