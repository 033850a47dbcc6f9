package reports

import (
	"net/url"
	"sort"
	"strings"

	"github.com/ncecere/phonescout/internal/model"
	"github.com/ncecere/phonescout/internal/phone"
)

// excludedTypes are never surfaced as a top contact.
var excludedTypes = map[string]bool{
	model.TypeUnknown: true,
	model.TypeFax:     true,
	model.TypeMobile:  true,
	model.TypeDate:    true,
	model.TypeID:      true,
}

// preferredCountryCodes order DACH numbers ahead of everything else.
var preferredCountryCodes = map[int]bool{49: true, 41: true, 43: true}

// Eligible reports whether a consolidated number may appear in contact
// output: business-relevant classification, a non-excluded type and no
// error tag.
func Eligible(n model.ConsolidatedNumber) bool {
	return n.ErrorTag == "" && n.Classification != model.ClassNonBusiness && !excludedTypes[n.Type]
}

// CountEligible counts the numbers Eligible would keep.
func CountEligible(numbers []model.ConsolidatedNumber) int {
	count := 0
	for _, n := range numbers {
		if Eligible(n) {
			count++
		}
	}
	return count
}

// SelectTopContacts picks up to three numbers for a site: non-business
// classifications only, excluded types dropped, preferred country codes
// first. Input order (the consolidation sort) is preserved within each
// preference group.
func SelectTopContacts(numbers []model.ConsolidatedNumber) []NumberEntry {
	var preferred, rest []NumberEntry
	for _, n := range numbers {
		if !Eligible(n) {
			continue
		}
		entry := NumberEntry{Number: n.Number, Type: n.Type}
		if len(n.Sources) > 0 {
			entry.SourceURL = n.Sources[0].SourceURL
		}
		if preferredCountryCodes[phone.CountryCode(n.Number)] {
			preferred = append(preferred, entry)
		} else {
			rest = append(rest, entry)
		}
	}
	top := append(preferred, rest...)
	if len(top) > 3 {
		top = top[:3]
	}
	return top
}

// AggregateCompanyName labels a site shared by several input companies as
// "<domain> - <A> - <B>" with the names deduplicated and sorted. A single
// company keeps its own name.
func AggregateCompanyName(canonicalURL string, companies []string) string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range companies {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		names = append(names, c)
	}
	if len(names) == 1 {
		return names[0]
	}

	domain := canonicalURL
	if u, err := url.Parse(canonicalURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}
	if len(names) == 0 {
		return domain
	}
	sort.Strings(names)
	return domain + " - " + strings.Join(names, " - ")
}
