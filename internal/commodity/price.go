package commodity

import (
	"regexp"
	"sort"

	"github.com/tidwall/gjson"
)

// pricePairs are the known from/to key pairs, most specific first.
var pricePairs = [][2]string{
	{"current_price", "predicted_price"},
	{"current_price_quintal", "predicted_price_quintal"},
	{"previous", "current"},
	{"prev", "curr"},
	{"yesterday", "today"},
	{"start", "end"},
	{"open", "close"},
	{"from", "to"},
	{"price_from", "price_to"},
	{"old", "new"},
	{"last", "price"},
}

var (
	earlierKeyRe = regexp.MustCompile(`(?i)prev|previous|yesterday|start|open|from|old|last`)
	laterKeyRe   = regexp.MustCompile(`(?i)curr|current|today|end|close|to|new|price`)
)

// Direction is the movement between the from and to prices.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
	Flat     Direction = "flat"
)

// Trend is the price movement derived from one matched entry.
type Trend struct {
	DisplayName string
	From        float64
	To          float64
	Direction   Direction
}

func number(v gjson.Result) (float64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	return v.Float(), true
}

// ExtractFromTo finds the from/to price pair in an entry. Known key pairs
// win; otherwise numeric fields are ranked by key name (earlier-sounding
// keys first, stable on document order) and the first two are used.
func ExtractFromTo(e Entry) (from, to float64, ok bool) {
	for _, p := range pricePairs {
		fv, fok := e.Get(p[0])
		tv, tok := e.Get(p[1])
		if !fok || !tok {
			continue
		}
		f, fnum := number(fv)
		t, tnum := number(tv)
		if fnum && tnum {
			return f, t, true
		}
	}

	type numField struct {
		key   string
		value float64
	}
	var nums []numField
	for _, f := range e.Fields {
		if v, isNum := number(f.Value); isNum {
			nums = append(nums, numField{key: f.Key, value: v})
		}
	}
	if len(nums) < 2 {
		return 0, 0, false
	}

	score := func(k string) int {
		switch {
		case earlierKeyRe.MatchString(k):
			return -1
		case laterKeyRe.MatchString(k):
			return 1
		}
		return 0
	}
	sort.SliceStable(nums, func(i, j int) bool {
		return score(nums[i].key) < score(nums[j].key)
	})
	return nums[0].value, nums[1].value, true
}

// DisplayName picks the name shown to the user: the first non-empty name
// field, else the candidate that matched.
func DisplayName(e Entry, used string) string {
	for _, k := range []string{"name", "commodity", "commodity_name", "symbol"} {
		if v, ok := e.Get(k); ok && v.Type != gjson.Null && v.String() != "" {
			return v.String()
		}
	}
	return used
}

// NewTrend extracts the price pair from e and classifies its direction.
func NewTrend(e Entry, used string) (Trend, bool) {
	from, to, ok := ExtractFromTo(e)
	if !ok {
		return Trend{}, false
	}
	dir := Flat
	switch {
	case to > from:
		dir = Increase
	case to < from:
		dir = Decrease
	}
	return Trend{DisplayName: DisplayName(e, used), From: from, To: to, Direction: dir}, true
}
