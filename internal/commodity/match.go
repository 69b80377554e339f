package commodity

import (
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/nadzzz/agrivoice/internal/fallback"
)

// nameKeys are the fields that may carry an entry's commodity name, in
// priority order.
var nameKeys = []string{"name", "commodity", "commodity_name", "symbol", "title"}

// Field is one top-level key of a price-list entry.
type Field struct {
	Key   string
	Value gjson.Result
}

// Entry is one loosely-typed price-list item. Fields keep document order,
// which the numeric-field heuristics in ExtractFromTo depend on.
type Entry struct {
	Raw    string
	Fields []Field
}

// NewEntry parses a single JSON object into an Entry.
func NewEntry(raw string) Entry {
	e := Entry{Raw: raw}
	gjson.Parse(raw).ForEach(func(k, v gjson.Result) bool {
		e.Fields = append(e.Fields, Field{Key: k.String(), Value: v})
		return true
	})
	return e
}

// Get returns the value of key and whether the key is present.
func (e Entry) Get(key string) (gjson.Result, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return gjson.Result{}, false
}

// Name returns the value of the first name-bearing key present, even if
// that value is empty.
func (e Entry) Name() (string, bool) {
	for _, k := range nameKeys {
		if v, ok := e.Get(k); ok {
			return v.String(), true
		}
	}
	return "", false
}

// ParseList decodes a price-list response. The list may be the top-level
// array or wrapped under "items" or "results"; any other object shape
// yields an empty list. Non-object elements are skipped.
func ParseList(body []byte) ([]Entry, error) {
	if !gjson.ValidBytes(body) {
		return nil, fallback.Malformed("price list: invalid JSON")
	}
	root := gjson.ParseBytes(body)

	var list gjson.Result
	switch {
	case root.IsArray():
		list = root
	case root.IsObject() && root.Get("items").IsArray():
		list = root.Get("items")
	case root.IsObject() && root.Get("results").IsArray():
		list = root.Get("results")
	default:
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(list.Array()))
	list.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			entries = append(entries, NewEntry(item.Raw))
		}
		return true
	})
	return entries, nil
}

// Normalize lowercases s, turns every run of non-alphanumeric characters
// into one space and trims the result.
func Normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r)
	}), " ")
}

func tokens(s string) []string {
	var out []string
	for _, t := range strings.Split(s, " ") {
		if len([]rune(t)) >= 3 {
			out = append(out, t)
		}
	}
	return out
}

// Match finds the entry for name using four strategies, each tried over
// the whole list before the next: exact match, name contained in the
// entry, entry contained in the name, then any shared token of three or
// more characters.
func Match(entries []Entry, name string) (Entry, bool) {
	target := Normalize(name)
	if target == "" {
		return Entry{}, false
	}

	type named struct {
		entry Entry
		norm  string
	}
	items := make([]named, 0, len(entries))
	for _, e := range entries {
		if n, ok := e.Name(); ok {
			items = append(items, named{entry: e, norm: Normalize(n)})
		}
	}

	for _, it := range items {
		if it.norm == target {
			return it.entry, true
		}
	}
	for _, it := range items {
		if strings.Contains(it.norm, target) {
			return it.entry, true
		}
	}
	for _, it := range items {
		if it.norm != "" && strings.Contains(target, it.norm) {
			return it.entry, true
		}
	}

	want := tokens(target)
	if len(want) == 0 {
		return Entry{}, false
	}
	for _, it := range items {
		for _, t := range tokens(it.norm) {
			for _, w := range want {
				if t == w {
					return it.entry, true
				}
			}
		}
	}
	return Entry{}, false
}

// Resolve tries each candidate of raw in order and returns the first
// matching entry together with the candidate that matched.
func Resolve(entries []Entry, raw string) (Entry, string, bool) {
	for _, cand := range Candidates(raw) {
		if e, ok := Match(entries, cand); ok {
			return e, cand, true
		}
	}
	return Entry{}, "", false
}
