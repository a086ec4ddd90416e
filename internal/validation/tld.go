package validation

import "strings"

var defaultKnownTLDs = []string{
	"com", "org", "net", "edu", "gov", "mil", "int",
	"io", "co", "ai", "app", "dev", "cloud", "tech", "info", "biz", "me", "tv",
	"xyz", "online", "site", "store", "shop", "blog", "page", "security",
	"us", "uk", "ca", "au", "nz", "ie", "de", "fr", "es", "it", "nl", "be",
	"ch", "at", "se", "no", "dk", "fi", "pl", "cz", "pt", "gr", "ru", "ua",
	"eu", "jp", "cn", "kr", "in", "sg", "hk", "tw", "br", "mx", "ar", "za",
	"il", "tr",
}

func toTLDSet(tlds []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tlds))
	for _, tld := range tlds {
		tld = strings.Trim(strings.ToLower(strings.TrimSpace(tld)), ".")
		if tld != "" {
			set[tld] = struct{}{}
		}
	}
	return set
}
