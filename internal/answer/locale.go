package answer

import (
	"fmt"
	"strconv"

	"github.com/nadzzz/agrivoice/internal/commodity"
	"github.com/nadzzz/agrivoice/internal/message"
)

// texts holds every user-facing sentence for one answer language. Hindi
// trend answers use Hinglish; everything else Hindi is Devanagari.
type texts struct {
	askCommodity   string
	notFound       string // %s: commodity as spoken
	unreadable     string // %s: commodity as spoken
	apology        string
	seed           string // %s city, %s pH, %s crop
	cropMissing    string
	noIrrigation   string
	noRisk         string
	askOneOf       string
	langDirective  string
	trendTemplate  string // %s name, %s from, %s to, %s trend word
	trendIncrease  string
	trendDecrease  string
	trendUnchanged string
}

var catalog = map[message.Language]texts{
	message.LanguageEnglish: {
		askCommodity:   "Please mention the commodity name for price trend (e.g., onion, tomato).",
		notFound:       `Could not find "%s" in the price list.`,
		unreadable:     `Found "%s" but could not infer price fields.`,
		apology:        "Sorry, I had trouble understanding the request. Please try again shortly.",
		seed:           "Recommended seed/crop for %s (pH %s): %s.",
		cropMissing:    "Not available",
		noIrrigation:   "No irrigation advice available.",
		noRisk:         "No risk data available.",
		askOneOf:       "Please ask one of: Q1 seed variety, Q2 irrigation timing, Q3 temperature risk.",
		langDirective:  "Answer STRICTLY in English.",
		trendTemplate:  "%s price is going to %[4]s from %[2]s/kg to %[3]s/kg",
		trendIncrease:  "increase",
		trendDecrease:  "decrease",
		trendUnchanged: "stay the same",
	},
	message.LanguageHindi: {
		askCommodity:   "कृपया कमोडिटी का नाम बताइए (जैसे प्याज़, टमाटर) ताकि कीमत का रुझान बताया जा सके।",
		notFound:       `कीमत सूची में "%s" नहीं मिला।`,
		unreadable:     `"%s" मिला, लेकिन कीमत फ़ील्ड समझ नहीं पाए।`,
		apology:        "माफ़ कीजिए, समझने में दिक्कत हुई। कृपया थोड़ी देर बाद फिर से प्रयास करें।",
		seed:           "%s (pH %s) के लिए अनुशंसित बीज/फसल: %s।",
		cropMissing:    "उपलब्ध नहीं",
		noIrrigation:   "कोई सिंचाई सलाह उपलब्ध नहीं है।",
		noRisk:         "कोई जोखिम डेटा उपलब्ध नहीं है।",
		askOneOf:       "कृपया इनमें से पूछें: Q1 बीज/फसल सिफारिश, Q2 सिंचाई का समय, Q3 तापमान/ठंड जोखिम।",
		langDirective:  "Answer STRICTLY in Hindi.",
		trendTemplate:  "%s ki keemat %s/kg se %s/kg tak %s.",
		trendIncrease:  "badhegi",
		trendDecrease:  "ghategi",
		trendUnchanged: "waisi hi rahegi",
	},
}

func textsFor(lang message.Language) texts {
	if t, ok := catalog[lang]; ok {
		return t
	}
	return catalog[message.LanguageEnglish]
}

// Apology is the fixed sentence shown when every answer strategy failed.
func Apology(lang message.Language) string {
	return textsFor(lang).apology
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TrendSentence renders a price trend in the answer language.
func TrendSentence(tr commodity.Trend, lang message.Language) string {
	t := textsFor(lang)
	word := t.trendUnchanged
	switch tr.Direction {
	case commodity.Increase:
		word = t.trendIncrease
	case commodity.Decrease:
		word = t.trendDecrease
	}
	return fmt.Sprintf(t.trendTemplate, tr.DisplayName, formatPrice(tr.From), formatPrice(tr.To), word)
}
