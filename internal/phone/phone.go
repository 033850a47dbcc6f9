package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/ncecere/phonescout/internal/model"
)

// DefaultRegions is the fallback parse order when a row carries no target
// country codes.
var DefaultRegions = []string{"DE", "AT", "CH"}

// Normalize parses a raw phone string against each region hint in order and
// returns the E.164 form of the first hint that yields a valid number.
// Numbers already carrying a + prefix are tried region-free first. The
// InvalidFormat sentinel is returned when nothing parses and validates.
func Normalize(raw string, regionHints []string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.InvalidFormat
	}
	if len(regionHints) == 0 {
		regionHints = DefaultRegions
	}

	hints := regionHints
	if strings.HasPrefix(s, "+") {
		hints = append([]string{""}, regionHints...)
	}

	for _, region := range hints {
		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			continue
		}
		if !phonenumbers.IsValidNumber(num) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return model.InvalidFormat
}

// CountryCode returns the numeric country calling code of an E.164 number,
// or 0 when the value is not parseable.
func CountryCode(e164 string) int {
	if !strings.HasPrefix(e164, "+") {
		return 0
	}
	num, err := phonenumbers.Parse(e164, "")
	if err != nil {
		return 0
	}
	return int(num.GetCountryCode())
}
