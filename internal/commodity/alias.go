// Package commodity resolves spoken commodity names against a price list.
//
// A raw mention ("pyaz", "प्याज़", "Onions") is expanded into ordered lookup
// candidates, each candidate is matched against the list with progressively
// looser strategies, and the matched entry is searched for a from/to price pair.
package commodity

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// aliases maps Hindi and transliterated names to the canonical English names
// the price list uses. Keys are NFC-normalized at init so that nukta forms
// typed as one or two code points look up the same entry.
var aliases = map[string]string{}

var rawAliases = map[string]string{
	// Devanagari
	"टमाटर":   "tomato",
	"प्याज़":   "onion",
	"प्याज":   "onion",
	"आलू":     "potato",
	"गेहूं":    "wheat",
	"चावल":    "rice",
	"अरहर":    "pigeon pea",
	"तूर":     "pigeon pea",
	"चना":     "chickpea",
	"सोयाबीन": "soybean",
	"कपास":    "cotton",
	"गन्ना":    "sugarcane",
	"मक्का":    "maize",
	"सरसों":    "mustard",

	// Transliterations
	"tamatar":  "tomato",
	"pyaz":     "onion",
	"pyaaz":    "onion",
	"aloo":     "potato",
	"aalu":     "potato",
	"gehu":     "wheat",
	"gehun":    "wheat",
	"chawal":   "rice",
	"arhar":    "pigeon pea",
	"toor":     "pigeon pea",
	"tur":      "pigeon pea",
	"dal":      "lentil",
	"chana":    "chickpea",
	"soyabean": "soybean",
	"soya":     "soybean",
	"kapas":    "cotton",
	"ganna":    "sugarcane",
	"makka":    "maize",
	"makai":    "maize",
	"corn":     "maize",
	"sarson":   "mustard",
}

// synonymGroups lists names the price list may use interchangeably. When a
// candidate's canonical form belongs to a group, the other members are tried
// in the listed order.
var synonymGroups = [][]string{
	{"maize", "corn"},
	{"pigeon pea", "toor dal", "arhar dal", "tur dal"},
	{"chickpea", "gram"},
}

func init() {
	for k, v := range rawAliases {
		aliases[norm.NFC.String(k)] = v
	}
}

// Canonical returns the canonical English name for a Hindi or
// transliterated commodity name.
func Canonical(name string) (string, bool) {
	s := norm.NFC.String(strings.TrimSpace(name))
	if v, ok := aliases[s]; ok {
		return v, true
	}
	v, ok := aliases[strings.ToLower(s)]
	return v, ok
}

// Candidates expands a raw commodity mention into de-duplicated lookup
// names, most specific first: the raw text, its lowercase form, the alias,
// a plural or singular variant, then known synonyms.
func Candidates(raw string) []string {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	lower := strings.ToLower(s)

	out := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	add := func(names ...string) {
		for _, n := range names {
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}

	add(s, lower)
	mapped, hasAlias := Canonical(s)
	if hasAlias {
		add(mapped)
	}
	if strings.HasSuffix(lower, "s") {
		add(strings.TrimSuffix(lower, "s"))
	} else {
		add(lower + "s")
	}

	canonical := lower
	if hasAlias {
		canonical = mapped
	}
	for _, group := range synonymGroups {
		if !slices.Contains(group, canonical) {
			continue
		}
		for _, g := range group {
			if g != canonical {
				add(g)
			}
		}
	}
	return out
}
