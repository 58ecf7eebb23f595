// Package auth resolves session cookies for collectors that read
// authenticated web endpoints. Cookies come from environment variables, a
// static map, or the local browser's cookie store, in that order.
package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// NewCookieJar creates an http.CookieJar populated with the given cookies
// for a domain.
func NewCookieJar(domain string, cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse("https://" + domain)
	if err != nil {
		return nil, err
	}

	var httpCookies []*http.Cookie
	for name, value := range cookies {
		if value != "" {
			httpCookies = append(httpCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Domain: "." + domain,
				Path:   "/",
			})
		}
	}

	jar.SetCookies(u, httpCookies)
	return jar, nil
}

// Source represents a source of authentication cookies.
type Source interface {
	// Cookies returns cookies for the given platform, or nil if unavailable.
	Cookies(ctx context.Context, platform string) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them. A
// failing source is skipped; its error surfaces only when no source yields
// cookies.
func ChainSources(ctx context.Context, platform string, sources ...Source) (map[string]string, error) {
	var lastErr error
	for _, src := range sources {
		cookies, err := src.Cookies(ctx, platform)
		if err != nil {
			lastErr = err
			continue
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}

// Domain returns the cookie domain for a platform, or "" when the platform
// needs no session cookies.
func Domain(platform string) string {
	return platformDomains[platform]
}
