package email

import "strings"

const DefaultLocalPort = "3000"

// URLConfig resolves the public base URL embedded in email links.
type URLConfig struct {
	// PublicURL overrides everything else when set.
	PublicURL string
	// PlatformHost is the host assigned by the deployment platform.
	PlatformHost string
	LocalPort    string
}

func (c URLConfig) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	if c.PlatformHost == "" {
		port := c.LocalPort
		if port == "" {
			port = DefaultLocalPort
		}
		return "http://localhost:" + port
	}
	host := c.PlatformHost
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return "https://" + strings.TrimRight(host, "/")
}
