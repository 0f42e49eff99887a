package validation

import (
	"net"
	"net/netip"
	"net/url"
	"strings"

	apperrors "go-meal-analyzer/internal/errors"
)

// URLValidator decides whether a photo URL may be fetched by the server.
type URLValidator struct {
	allowedSchemes []string
	trustedHosts   []string
}

// blockedNetworks are never reachable from the photo fetcher, whether named
// directly in the URL or reached after DNS resolution.
var blockedNetworks = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

var blockedHostnames = []string{
	"localhost",
	"metadata",
	"metadata.google.internal",
	"instance-data",
}

var blockedHostSuffixes = []string{
	".localhost",
	".local",
	".internal",
	".localdomain",
}

// NewURLValidator returns an HTTPS-only validator restricted to trustedHosts.
// Entries starting with "." match any subdomain; other entries match the
// host exactly or as a parent domain. An empty list disables the host check
// but keeps every address rule.
func NewURLValidator(trustedHosts []string) *URLValidator {
	hosts := make([]string, 0, len(trustedHosts))
	for _, h := range trustedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &URLValidator{
		allowedSchemes: []string{"https"},
		trustedHosts:   hosts,
	}
}

// ValidateImageURL runs the SSRF rules against photoURL. It never touches
// the network.
func (v *URLValidator) ValidateImageURL(photoURL string) error {
	if strings.TrimSpace(photoURL) == "" {
		return apperrors.NewMissingFieldError("photo_url")
	}

	parsedURL, err := url.Parse(photoURL)
	if err != nil {
		return apperrors.NewURLNotAllowedError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewURLNotAllowedError("URL scheme not allowed", nil)
	}

	if parsedURL.User != nil {
		return apperrors.NewURLNotAllowedError("URL must not carry credentials", nil)
	}

	host := strings.TrimSuffix(strings.ToLower(parsedURL.Hostname()), ".")
	if host == "" {
		return apperrors.NewURLNotAllowedError("URL must have a valid host", nil)
	}

	if port := parsedURL.Port(); port != "" && port != "443" {
		return apperrors.NewURLNotAllowedError("URL port not allowed", nil)
	}

	if ip := net.ParseIP(host); ip != nil {
		if IsBlockedIP(ip) {
			return apperrors.NewURLNotAllowedError("URL points at a private or reserved address", nil)
		}
	} else if looksNumeric(host) {
		// 2130706433, 0x7f.1 and friends resolve to loopback on some stacks
		return apperrors.NewURLNotAllowedError("URL host is an encoded address", nil)
	}

	if isBlockedHostname(host) {
		return apperrors.NewURLNotAllowedError("URL points at an internal host", nil)
	}

	if !v.isHostTrusted(host) {
		return apperrors.NewURLNotAllowedError("URL host not allowed", nil)
	}

	return nil
}

// IsBlockedIP reports whether ip is private, loopback, link-local,
// carrier-grade NAT, multicast or otherwise reserved.
func IsBlockedIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	addr = addr.Unmap()
	for _, prefix := range blockedNetworks {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostTrusted checks host against the trusted list.
// Returns true if no host restrictions are set.
func (v *URLValidator) isHostTrusted(host string) bool {
	if len(v.trustedHosts) == 0 {
		return true
	}
	for _, trusted := range v.trustedHosts {
		if strings.HasPrefix(trusted, ".") {
			if strings.HasSuffix(host, trusted) && len(host) > len(trusted) {
				return true
			}
			continue
		}
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	for _, blocked := range blockedHostnames {
		if host == blocked {
			return true
		}
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func looksNumeric(host string) bool {
	for _, r := range host {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'x':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	// plain hex words like "cafe" or "bad" are real hostnames
	return strings.ContainsAny(host, "0123456789")
}
