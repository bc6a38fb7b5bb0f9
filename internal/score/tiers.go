package score

import (
	"net/url"
	"strings"
)

// TierConfig overrides the built-in publisher tier table.
type TierConfig struct {
	// DomainMap maps a host (or suffix) to a tier letter.
	DomainMap map[string]string `yaml:"domain_map"`
	// PublisherMap maps a publisher display name to a tier letter.
	PublisherMap map[string]string `yaml:"publisher_map"`
}

// TierClassifier assigns a coarse trust tier to a citation origin.
// Tier A is league/wire-service coverage, B major national outlets,
// C everything else.
type TierClassifier struct {
	domainMap    map[string]string
	publisherMap map[string]string
}

var defaultDomainTiers = map[string]string{
	"nfl.com":              "A",
	"apnews.com":           "A",
	"reuters.com":          "A",
	"espn.com":             "B",
	"nbcsports.com":        "B",
	"cbssports.com":        "B",
	"foxsports.com":        "B",
	"si.com":               "B",
	"theathletic.com":      "B",
	"profootballtalk.com":  "B",
	"bleacherreport.com":   "C",
	"sportingnews.com":     "C",
}

// NewTierClassifier builds a classifier; a nil config uses the
// built-in table only.
func NewTierClassifier(cfg *TierConfig) *TierClassifier {
	c := &TierClassifier{
		domainMap:    make(map[string]string, len(defaultDomainTiers)),
		publisherMap: make(map[string]string),
	}
	for k, v := range defaultDomainTiers {
		c.domainMap[k] = v
	}
	if cfg != nil {
		for k, v := range cfg.DomainMap {
			c.domainMap[strings.ToLower(k)] = strings.ToUpper(v)
		}
		for k, v := range cfg.PublisherMap {
			c.publisherMap[strings.ToLower(k)] = strings.ToUpper(v)
		}
	}
	return c
}

// ClassifyURL maps a URL's host to a tier; unknown hosts are tier C.
func (c *TierClassifier) ClassifyURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "C"
	}
	host := strings.ToLower(parsed.Hostname())

	if tier, ok := c.domainMap[host]; ok {
		return tier
	}
	// Suffix match so subdomains inherit the parent's tier.
	for domain, tier := range c.domainMap {
		if strings.HasSuffix(host, "."+domain) {
			return tier
		}
	}
	return "C"
}

// ClassifyPublisher maps a publisher name to a tier, falling back to
// the domain table when the name looks like a host.
func (c *TierClassifier) ClassifyPublisher(publisher string) string {
	key := strings.ToLower(strings.TrimSpace(publisher))
	if key == "" {
		return "C"
	}
	if tier, ok := c.publisherMap[key]; ok {
		return tier
	}
	if tier, ok := c.domainMap[key]; ok {
		return tier
	}
	return "C"
}
