package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// BotKind groups non-human clicks by what sent them.
type BotKind string

const (
	Human    BotKind = ""
	Crawler  BotKind = "crawler"
	Preview  BotKind = "preview"
	Monitor  BotKind = "monitor"
	Client   BotKind = "client"
	Headless BotKind = "headless"
)

// Lower-case User-Agent substrings per kind. Checked in order, so unfurlers
// that also contain "bot" are reported as previews.
var signatures = []struct {
	kind BotKind
	subs []string
}{
	{Preview, []string{
		"facebookexternalhit", "facebot", "whatsapp", "slackbot", "telegrambot",
		"twitterbot", "linkedinbot", "discordbot", "skypeuripreview", "bingpreview/",
		"google web preview", "preview",
	}},
	{Monitor, []string{
		"uptimerobot", "pingdom", "statuscake", "site24x7", "betteruptime",
		"chrome-lighthouse", "googlesecurityscanner", "ruxitsynthetic/", "zgrab/",
		"netcraftsurveyagent/",
	}},
	{Headless, []string{
		"headlesschrome/", "phantomjs", "slimerjs", "wkhtmltoimage", "wkhtmltopdf",
	}},
	{Client, []string{
		"go-http-client/", "curl/", "wget/", "python-requests/", "python-urllib/",
		"aiohttp/", "okhttp/", "java/", "libwww-perl/", "axios/", "node-fetch",
		"ruby",
	}},
	{Crawler, []string{"bot", "spider", "crawl", "slurp"}},
}

// Classify returns the bot kind for a User-Agent, or Human. An empty
// User-Agent counts as a client library.
func Classify(rawUA string) BotKind {
	if strings.TrimSpace(rawUA) == "" {
		return Client
	}
	lower := strings.ToLower(rawUA)
	for _, group := range signatures {
		for _, sub := range group.subs {
			if strings.Contains(lower, sub) {
				return group.kind
			}
		}
	}
	if useragent.New(rawUA).Bot() {
		return Crawler
	}
	return Human
}

// IsBot reports whether a click should count as robot traffic.
func IsBot(rawUA string) bool {
	return Classify(rawUA) != Human
}
