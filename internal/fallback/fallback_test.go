package fallback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(name string, out string, err error, calls *[]string) Attempt[string, string] {
	return Func[string, string]{Label: name, Fn: func(_ context.Context, in string) (string, error) {
		*calls = append(*calls, name)
		if err != nil {
			return "", err
		}
		return out + ":" + in, nil
	}}
}

func TestRun_FirstSuccessWins(t *testing.T) {
	var calls []string
	out, tier, err := Run(context.Background(), "q", nil,
		step("a", "", errors.New("boom"), &calls),
		step("b", "B", nil, &calls),
		step("c", "C", nil, &calls),
	)
	require.NoError(t, err)
	assert.Equal(t, "B:q", out)
	assert.Equal(t, "b", tier)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestRun_AllFail(t *testing.T) {
	var calls []string
	var observed []string
	_, tier, err := Run(context.Background(), "q",
		func(name string, err error) { observed = append(observed, name) },
		step("a", "", NotConfigured("a: no key"), &calls),
		step("b", "", &StatusError{Service: "b", StatusCode: 502}, &calls),
	)
	require.Error(t, err)
	assert.Empty(t, tier)
	assert.Contains(t, err.Error(), "all tiers failed")
	assert.Equal(t, 502, StatusCode(err))
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, []string{"a", "b"}, observed)
}

func TestRun_NoTiers(t *testing.T) {
	_, _, err := Run[string, string](context.Background(), "q", nil)
	assert.ErrorContains(t, err, "no tiers configured")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls []string
	_, _, err := Run(ctx, "q", nil, step("a", "A", nil, &calls))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, IsSkippable(NotConfigured("direct: missing %s", "credential")))
	assert.False(t, IsSkippable(Malformed("no audio")))
	assert.ErrorIs(t, Malformed("no audio"), ErrMalformed)
	assert.Equal(t, 0, StatusCode(errors.New("x")))
}

func TestCheckResponse(t *testing.T) {
	ok := &http.Response{StatusCode: 204, Body: io.NopCloser(strings.NewReader(""))}
	assert.NoError(t, CheckResponse("svc", ok))

	bad := &http.Response{StatusCode: 503, Body: io.NopCloser(strings.NewReader("overloaded"))}
	err := CheckResponse("svc", bad)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.StatusCode)
	assert.Equal(t, "svc: status 503: overloaded", se.Error())
}
