package parser

import "github.com/karandev/voice-inventory/internal/core/domain"

// Closed trigger vocabulary. Transcripts are matched against these normalized
// tokens; the earliest trigger in the phrase decides the intent.
var intentTriggers = map[string]domain.Intent{
	"add":      domain.IntentAdd,
	"added":    domain.IntentAdd,
	"adding":   domain.IntentAdd,
	"sell":     domain.IntentSell,
	"sold":     domain.IntentSell,
	"selling":  domain.IntentSell,
	"delete":   domain.IntentDelete,
	"deleted":  domain.IntentDelete,
	"deleting": domain.IntentDelete,
	"remove":   domain.IntentDelete,
	"removed":  domain.IntentDelete,
	"removing": domain.IntentDelete,
}

// Unit nouns recognized when a phrase omits "of" ("add 10 packets milk").
// Keys are singular; tokens are singularized before lookup.
var unitVocab = map[string]struct{}{
	"packet":     {},
	"pack":       {},
	"bottle":     {},
	"box":        {},
	"piece":      {},
	"bag":        {},
	"can":        {},
	"jar":        {},
	"carton":     {},
	"crate":      {},
	"sachet":     {},
	"tin":        {},
	"bar":        {},
	"roll":       {},
	"tube":       {},
	"strip":      {},
	"tray":       {},
	"dozen":      {},
	"unit":       {},
	"loaf":       {},
	"kg":         {},
	"kilo":       {},
	"kilogram":   {},
	"gram":       {},
	"g":          {},
	"liter":      {},
	"litre":      {},
	"l":          {},
	"ml":         {},
	"milliliter": {},
}

// Spelled-out numbers below one hundred. "zero" is present so that
// "add zero milk" classifies as an invalid quantity, not a missing one.
var numberWords = map[string]int{
	"zero":      0,
	"one":       1,
	"two":       2,
	"three":     3,
	"four":      4,
	"five":      5,
	"six":       6,
	"seven":     7,
	"eight":     8,
	"nine":      9,
	"ten":       10,
	"eleven":    11,
	"twelve":    12,
	"thirteen":  13,
	"fourteen":  14,
	"fifteen":   15,
	"sixteen":   16,
	"seventeen": 17,
	"eighteen":  18,
	"nineteen":  19,
	"twenty":    20,
	"thirty":    30,
	"forty":     40,
	"fifty":     50,
	"sixty":     60,
	"seventy":   70,
	"eighty":    80,
	"ninety":    90,
}

// Multipliers applied to the number accumulated so far ("two hundred").
var numberMultipliers = map[string]int{
	"hundred":  100,
	"thousand": 1000,
}

var articles = map[string]struct{}{
	"a":   {},
	"an":  {},
	"the": {},
}
