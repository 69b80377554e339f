package interpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/fallback"
	"github.com/nadzzz/agrivoice/internal/llm"
	"github.com/nadzzz/agrivoice/internal/message"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		outcome   Outcome
		kind      message.IntentKind
		commodity string
	}{
		{"minified", `{"intent":"commodity_trend","commodity":"tomato"}`, Parsed, message.IntentCommodityTrend, "tomato"},
		{"json fence", "```json\n{\"intent\":\"commodity_trend\",\"commodity\":\"tomato\"}\n```", Parsed, message.IntentCommodityTrend, "tomato"},
		{"bare fence", "```\n{\"intent\":\"advisory_seed\"}\n```", Parsed, message.IntentAdvisorySeed, ""},
		{"embedded", `Sure! Here it is: {"intent":"advisory_cold","city":"Agra"} hope that helps`, Extracted, message.IntentAdvisoryCold, ""},
		{"placeholder pipe", `{"intent":"commodity_trend","commodity":"onion|"}`, Parsed, message.IntentCommodityTrend, "onion"},
		{"empty commodity", `{"intent":"commodity_trend","commodity":"|"}`, Parsed, message.IntentCommodityTrend, ""},
		{"not an intent", `{"intent":"weather"}`, Unparsed, message.IntentUnknown, ""},
		{"missing intent", `{"commodity":"onion"}`, Unparsed, message.IntentUnknown, ""},
		{"prose", "I think you are asking about onions.", Unparsed, message.IntentUnknown, ""},
		{"broken object", `{"intent": commodity_trend}`, Unparsed, message.IntentUnknown, ""},
		{"empty", "", Unparsed, message.IntentUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw)
			assert.Equal(t, tt.outcome, res.Outcome, res.Reason)
			assert.Equal(t, tt.kind, res.Intent.Kind)
			assert.Equal(t, tt.commodity, res.Intent.Commodity)
		})
	}
}

func TestParse_Slots(t *testing.T) {
	res := Parse(`{"intent":"advisory_irrigation","commodity":"","city":" Lucknow ","ph":6.4}`)
	require.Equal(t, Parsed, res.Outcome)
	assert.Equal(t, "Lucknow", res.Intent.City)
	require.NotNil(t, res.Intent.PH)
	assert.InDelta(t, 6.4, *res.Intent.PH, 1e-9)

	res = Parse(`{"intent":"advisory_seed","ph":"6.4"}`)
	assert.Nil(t, res.Intent.PH, "ph is only taken when it is a number")
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }
func (f *fakeGenerator) Close() error { return nil }
func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	return f.reply, f.err
}

func TestResolve(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"intent\":\"commodity_trend\",\"commodity\":\"pyaz\"}\n```"}
	r := New(gen, "gemini-2.0-flash")

	in, err := r.Resolve(context.Background(), "pyaz ka bhav kya hai")
	require.NoError(t, err)
	assert.Equal(t, message.Intent{Kind: message.IntentCommodityTrend, Commodity: "pyaz"}, in)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "User: pyaz ka bhav kya hai")
	assert.Contains(t, gen.prompts[0], "No explanation text.")
}

func TestResolve_Failures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("network down")}
	in, err := New(gen, "").Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, message.IntentUnknown, in.Kind)
	assert.Len(t, gen.prompts, 1, "no retries")

	in, err = New(nil, "").Resolve(context.Background(), "x")
	assert.True(t, fallback.IsSkippable(err))
	assert.Equal(t, message.IntentUnknown, in.Kind)

	in, err = New(&fakeGenerator{reply: "no idea"}, "").Resolve(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, message.IntentUnknown, in.Kind)
}
