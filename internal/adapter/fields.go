package adapter

import (
	"net/url"
	"strings"
)

// NotifyPathPrefix marks payment-module access points in the URL space.
const NotifyPathPrefix = "/payment-module"

// NotifyPath is the route a gateway posts its notification to.
func NotifyPath(gateway string) string {
	return NotifyPathPrefix + "/" + gateway + "/notify"
}

// CallbackURLs builds absolute callback URLs from the shop's public base URL.
type CallbackURLs struct {
	BaseURL string
}

// Notify returns the absolute notification URL for gateway. Backend
// reprocessing is flagged so the handler sends the admin to the admin receipt.
func (c CallbackURLs) Notify(gateway string, mode Mode) string {
	u := strings.TrimRight(c.BaseURL, "/") + NotifyPath(gateway)
	if mode == ModeBackendReprocess {
		u += "?" + url.Values{"mode": {string(ModeBackendReprocess)}}.Encode()
	}
	return u
}

// SplitStreet splits a multi-line street into two gateway lines. The first
// line goes to line1; every following line is joined with single spaces
// into line2. CRLF, LF and a lone CR all end a line; blank lines are
// dropped.
func SplitStreet(street string) (line1, line2 string) {
	normalized := strings.ReplaceAll(street, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	first, rest, found := strings.Cut(normalized, "\n")
	line1 = strings.TrimSpace(first)
	if !found {
		return line1, ""
	}
	var parts []string
	for _, l := range strings.Split(rest, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return line1, strings.Join(parts, " ")
}
