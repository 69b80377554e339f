// Package interpreter resolves an utterance into a typed intent with one
// LLM call.
//
// The model is asked for minified JSON, but its output is not trusted: the
// reply is parsed permissively (fence strip, direct parse, first-object
// extraction) and validated against a small JSON schema. Anything that does
// not survive becomes the unknown intent.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
	"github.com/nadzzz/agrivoice/internal/message"
)

const intentSchema = `
Respond ONLY with minified JSON like:
{"intent":"commodity_trend|advisory_seed|advisory_irrigation|advisory_cold|unknown","commodity":"<name>|","city":"|","ph":6.4}
Rules:
- intent must be one of the allowed tokens.
- commodity only if clearly mentioned.
- city if user mentions a city; else empty.
- ph number if mentioned; else omit.
No explanation text.`

// Prompt builds the intent-extraction prompt for a question.
func Prompt(question string) string {
	return fmt.Sprintf("Understand the user's question and extract intent and fields.\nUser: %s\n%s", question, intentSchema)
}

// Resolver turns utterances into intents.
type Resolver struct {
	gen   llm.Generator
	model string
}

// New creates a resolver. model may be empty to use the generator's default.
func New(gen llm.Generator, model string) *Resolver {
	return &Resolver{gen: gen, model: model}
}

// Resolve makes exactly one generation call. The returned intent is always
// usable: it is the unknown intent whenever err is non-nil or the reply
// could not be parsed. err reports only call failures, so callers can log
// why understanding fell back.
func (r *Resolver) Resolve(ctx context.Context, text string) (message.Intent, error) {
	if r.gen == nil {
		return message.UnknownIntent(), fallback.NotConfigured("interpreter: no LLM backend")
	}

	raw, err := r.gen.Generate(ctx, llm.Request{Model: r.model, Prompt: Prompt(text)})
	if err != nil {
		return message.UnknownIntent(), err
	}

	res := Parse(raw)
	slog.Debug("intent parsed", "outcome", res.Outcome, "intent", res.Intent.Kind, "reason", res.Reason)
	return res.Intent, nil
}
