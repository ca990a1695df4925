package config

import "maps"

// SiteConfig overrides crawl settings for one host.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. "a=1; b=2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are glob patterns; matching URL paths are not followed.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict discovery to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Concurrency overrides the global worker count when non-zero.
	Concurrency int `yaml:"concurrency,omitempty"`

	// MaxPages overrides the global page limit when non-zero.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// File is the layout of a .sitemirror file.
type File struct {
	// Defaults apply to every site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites are keyed by host, with the port when it is not the default one
	// (e.g. "example.com", "localhost:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns Defaults overlaid with the entry for host.
// The returned value shares no maps with f.
func (f *File) GetSiteConfig(host string) SiteConfig {
	result := f.Defaults
	result.Headers = maps.Clone(f.Defaults.Headers)

	site, ok := f.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	if site.Concurrency != 0 {
		result.Concurrency = site.Concurrency
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	return result
}
