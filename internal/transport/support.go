package transport

import "regexp"

var (
	chromiumUA = regexp.MustCompile(`Chrome|Chromium|Edg/`)
	firefoxUA  = regexp.MustCompile(`Firefox/`)
)

// IsChromium reports whether a user agent belongs to a Chromium-family browser.
func IsChromium(userAgent string) bool {
	return chromiumUA.MatchString(userAgent) && !firefoxUA.MatchString(userAgent)
}

// Support describes whether direct plotting should be offered to a client.
type Support struct {
	Serial         bool `json:"serial"`
	Chromium       bool `json:"chromium"`
	DirectPlotting bool `json:"directPlotting"`
}

// CheckSupport combines host serial capability with the client's browser family.
// It is advisory only; the session does not enforce it.
func CheckSupport(serialAvailable bool, userAgent string) Support {
	chromium := IsChromium(userAgent)
	return Support{
		Serial:         serialAvailable,
		Chromium:       chromium,
		DirectPlotting: serialAvailable && chromium,
	}
}
