package carriers

import (
	"regexp"

	"github.com/shipscope/shipscope/internal/models"
)

// Rules are evaluated in order; the first pattern matching the whole
// identifier wins. FedEx digits-only formats must come after UPS so that
// "1Z..." never falls through to a digit rule, and Amazon order ids are
// checked last because their hyphens make them unambiguous anyway.
var rules = []struct {
	carrier string
	re      *regexp.Regexp
}{
	{models.CarrierUPS, regexp.MustCompile(`(?i)^1Z[0-9A-Z]{16}$`)},
	{models.CarrierFedEx, regexp.MustCompile(`^(\d{12}|\d{15})$`)},
	{models.CarrierDHL, regexp.MustCompile(`(?i)^[A-Z]{2}\d{9}[A-Z]{2}$`)},
	{models.CarrierUSPS, regexp.MustCompile(`^9[2-5]\d{20,22}$`)},
	{models.CarrierAmazon, regexp.MustCompile(`(?i)^[0-9A-Z]{3}-[0-9A-Z]{7}-[0-9A-Z]{7}$`)},
}

// Detect classifies an identifier into a carrier tag. It is total: an
// unrecognized format is a normal CarrierUnknown result, not a failure.
func Detect(trackingNumber string) string {
	for _, r := range rules {
		if r.re.MatchString(trackingNumber) {
			return r.carrier
		}
	}
	return models.CarrierUnknown
}
