package parser

import (
	"net/url"
	"regexp"
	"strings"
)

var imdbIDRe = regexp.MustCompile(`^tt\d+$`)

// ExtractIMDbID accepts a bare "tt1234567" or an imdb.com title URL.
func ExtractIMDbID(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if imdbIDRe.MatchString(text) {
		return text, true
	}

	raw := text
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "imdb.com") {
		return "", false
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if imdbIDRe.MatchString(seg) {
			return seg, true
		}
	}
	return "", false
}
