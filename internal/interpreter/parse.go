package interpreter

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/nadzzz/agrivoice/internal/message"
)

// Outcome tags how a model reply was turned into an intent.
type Outcome string

const (
	// Parsed means the whole reply (after fence removal) was the JSON object.
	Parsed Outcome = "parsed"

	// Extracted means the JSON object was found embedded in other text.
	Extracted Outcome = "extracted"

	// Unparsed means no schema-valid object was found; the intent is unknown.
	Unparsed Outcome = "unparsed"
)

// ParseResult is the tagged result of Parse.
type ParseResult struct {
	Outcome Outcome
	Intent  message.Intent

	// Reason explains an Unparsed outcome.
	Reason string
}

var (
	leadingFenceRe  = regexp.MustCompile("(?i)^```(?:json)?")
	trailingFenceRe = regexp.MustCompile("```$")
	objectRe        = regexp.MustCompile(`\{[\s\S]*\}`)

	schema = mustSchema(`{
		"type": "object",
		"required": ["intent"],
		"properties": {
			"intent": {"enum": ["commodity_trend", "advisory_seed", "advisory_irrigation", "advisory_cold", "unknown"]}
		}
	}`)
)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return sc
}

// Parse converts a model reply into an intent. It never fails: replies
// that cannot be understood produce the unknown intent with Outcome
// Unparsed.
func Parse(raw string) ParseResult {
	text := strings.TrimSpace(raw)
	text = leadingFenceRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(trailingFenceRe.ReplaceAllString(text, ""))

	if gjson.Valid(text) && gjson.Parse(text).IsObject() {
		return validate(text, Parsed)
	}

	m := objectRe.FindString(text)
	if m == "" {
		return unparsed("no JSON object in reply")
	}
	if !gjson.Valid(m) {
		return unparsed("embedded object is not valid JSON")
	}
	return validate(m, Extracted)
}

func validate(doc string, outcome Outcome) ParseResult {
	res, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return unparsed(err.Error())
	}
	if !res.Valid() {
		reasons := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			reasons = append(reasons, e.String())
		}
		return unparsed(strings.Join(reasons, "; "))
	}
	return ParseResult{Outcome: outcome, Intent: toIntent(gjson.Parse(doc))}
}

func unparsed(reason string) ParseResult {
	return ParseResult{Outcome: Unparsed, Intent: message.UnknownIntent(), Reason: reason}
}

// slot trims a string slot. The prompt's placeholder syntax ("<name>|")
// sometimes leaks into replies, so pipes are stripped too.
func slot(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return strings.Trim(v.String(), " \t|")
}

func toIntent(obj gjson.Result) message.Intent {
	in := message.Intent{
		Kind:      message.IntentKind(obj.Get("intent").String()),
		Commodity: slot(obj.Get("commodity")),
		City:      slot(obj.Get("city")),
	}
	if ph := obj.Get("ph"); ph.Type == gjson.Number {
		v := ph.Float()
		in.PH = &v
	}
	return in
}
