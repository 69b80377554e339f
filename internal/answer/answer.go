// Package answer turns a resolved intent into one localized answer.
//
// Price-trend intents are answered from the price list without the LLM.
// Advisory intents fetch the advisory record and ask the LLM to phrase one
// sentence grounded in it; when the LLM is unavailable a keyword-driven
// template answer is produced instead. The two advisory paths pick fields
// differently and are not guaranteed to agree.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nadzzz/agrivoice/internal/agriapi"
	"github.com/nadzzz/agrivoice/internal/commodity"
	"github.com/nadzzz/agrivoice/internal/llm"
	"github.com/nadzzz/agrivoice/internal/message"
	"github.com/nadzzz/agrivoice/internal/sanitize"
)

// ErrUnhandled is returned for intents this package does not answer
// (unknown). The caller falls back to the backend.
var ErrUnhandled = eris.New("answer: intent not handled")

// PriceSource supplies a fresh price-list snapshot.
type PriceSource interface {
	PriceList(ctx context.Context) ([]commodity.Entry, error)
}

// AdvisorySource supplies advisory records.
type AdvisorySource interface {
	Advisory(ctx context.Context, city string, ph float64) (*agriapi.AdvisoryRecord, error)
}

// Options holds synthesis defaults.
type Options struct {
	Model       string
	DefaultCity string
	DefaultPH   float64
}

// Synthesizer produces answers for recognized intents.
type Synthesizer struct {
	prices   PriceSource
	advisory AdvisorySource
	gen      llm.Generator
	opts     Options
}

// New creates a Synthesizer. gen may be nil, in which case advisory
// answers always use the template path.
func New(prices PriceSource, advisory AdvisorySource, gen llm.Generator, opts Options) *Synthesizer {
	if opts.DefaultCity == "" {
		opts.DefaultCity = "Varanasi"
	}
	if opts.DefaultPH == 0 {
		opts.DefaultPH = 6.5
	}
	return &Synthesizer{prices: prices, advisory: advisory, gen: gen, opts: opts}
}

// Synthesize answers question for a resolved intent with exactly one
// terminated sentence. Data-fetch failures are returned as errors; NoMatch
// outcomes are ordinary answers.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, lang message.Language, in message.Intent) (message.Answer, error) {
	var text string
	var err error
	switch {
	case in.Kind == message.IntentCommodityTrend:
		text, err = s.trend(ctx, in.Commodity, lang)
	case in.Kind.IsAdvisory():
		text, err = s.advise(ctx, question, lang, in)
	default:
		return message.Answer{}, ErrUnhandled
	}
	if err != nil {
		return message.Answer{}, err
	}
	return message.Answer{Text: sanitize.Sanitize(text), Language: lang}, nil
}

func (s *Synthesizer) trend(ctx context.Context, name string, lang message.Language) (string, error) {
	t := textsFor(lang)
	if strings.TrimSpace(name) == "" {
		return t.askCommodity, nil
	}

	entries, err := s.prices.PriceList(ctx)
	if err != nil {
		return "", eris.Wrap(err, "price trend")
	}
	entry, used, ok := commodity.Resolve(entries, name)
	if !ok {
		return fmt.Sprintf(t.notFound, name), nil
	}
	tr, ok := commodity.NewTrend(entry, used)
	if !ok {
		return fmt.Sprintf(t.unreadable, name), nil
	}
	return TrendSentence(tr, lang), nil
}

func (s *Synthesizer) advise(ctx context.Context, question string, lang message.Language, in message.Intent) (string, error) {
	city := strings.TrimSpace(in.City)
	if city == "" {
		city = s.opts.DefaultCity
	}
	ph := s.opts.DefaultPH
	if in.PH != nil {
		ph = *in.PH
	}

	rec, err := s.advisory.Advisory(ctx, city, ph)
	if err != nil {
		return "", eris.Wrap(err, "advisory")
	}

	if s.gen != nil {
		out, err := s.gen.Generate(ctx, llm.Request{Model: s.opts.Model, Prompt: AdvisoryPrompt(question, rec, lang, in.Kind)})
		if err == nil {
			if !sanitize.Blank(out) {
				return out, nil
			}
			err = eris.New("blank advisory phrasing")
		}
		slog.WarnContext(ctx, "advisory phrasing unavailable, using template answer", "error", err)
	}
	return TemplateAdvice(question, rec, lang, city, ph), nil
}

var topicLabels = map[message.IntentKind]string{
	message.IntentAdvisorySeed:       "seed_variety",
	message.IntentAdvisoryIrrigation: "irrigation_timing",
	message.IntentAdvisoryCold:       "cold_risk",
}

// AdvisoryPrompt builds the grounded one-sentence phrasing prompt.
func AdvisoryPrompt(question string, rec *agriapi.AdvisoryRecord, lang message.Language, kind message.IntentKind) string {
	var sb strings.Builder
	sb.WriteString("You are an expert agricultural assistant.\n")
	sb.WriteString("Task:\n")
	sb.WriteString("1) First infer the user's intent internally as one of: seed_variety, irrigation_timing, cold_risk. Do NOT output the word \"Intent\" or any labels.\n")
	sb.WriteString("2) Respond with EXACTLY ONE concise, user-friendly sentence in plain text, suitable for a farmer.\n")
	sb.WriteString("3) Base your answer STRICTLY on the JSON data provided. Do not invent or assume anything outside the JSON.\n")
	sb.WriteString("4) If helpful and present, you may reference city and soil pH from the JSON.\n")
	sb.WriteString("5) Do NOT output JSON, markdown, code fences, or headings. Just the answer sentence.\n")
	sb.WriteString("6) Use fields if present:\n")
	sb.WriteString("   - seed_variety: " + agriapi.FieldCropRecommendation + "\n")
	sb.WriteString("   - irrigation_timing: " + agriapi.FieldIrrigationAdvice + "\n")
	sb.WriteString("   - cold_risk: " + agriapi.FieldColdRisk + "\n")
	sb.WriteString("7) " + textsFor(lang).langDirective + "\n")
	if label, ok := topicLabels[kind]; ok {
		sb.WriteString("Hint: the request was classified as " + label + ".\n")
	}
	sb.WriteString("\nUser question: " + question + "\n\n")
	sb.WriteString("JSON data:\n" + rec.Indented() + "\n")
	return sb.String()
}

var (
	seedRe       = regexp.MustCompile(`seed|variety|crop\s+recommendation`)
	irrigationRe = regexp.MustCompile(`irrigat(e|ion)`)
	coldRe       = regexp.MustCompile(`cold|temperature|risk`)
)

// TemplateAdvice answers from the advisory record without the LLM,
// choosing the field by keywords in the question.
func TemplateAdvice(question string, rec *agriapi.AdvisoryRecord, lang message.Language, city string, ph float64) string {
	t := textsFor(lang)
	q := strings.ToLower(question)

	switch {
	case seedRe.MatchString(q):
		crop := rec.Field(agriapi.FieldCropRecommendation)
		if crop == "" {
			crop = t.cropMissing
		}
		recCity := rec.City()
		if recCity == "" {
			recCity = city
		}
		recPH := rec.PH()
		if recPH == "" {
			recPH = strconv.FormatFloat(ph, 'f', -1, 64)
		}
		return fmt.Sprintf(t.seed, recCity, recPH, crop)
	case irrigationRe.MatchString(q):
		if advice := rec.Field(agriapi.FieldIrrigationAdvice); advice != "" {
			return advice
		}
		return t.noIrrigation
	case coldRe.MatchString(q):
		if risk := rec.Field(agriapi.FieldColdRisk); risk != "" {
			return risk
		}
		return t.noRisk
	}
	return t.askOneOf
}
