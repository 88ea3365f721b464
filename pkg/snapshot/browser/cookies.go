package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// URL returns the address currently loaded in the page.
func (p *Page) URL(ctx context.Context) (*url.URL, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return nil, fmt.Errorf("browser: page info: %w", err)
	}
	u, err := url.Parse(info.URL)
	if err != nil {
		return nil, fmt.Errorf("browser: page url: %w", err)
	}
	return u, nil
}

// CopyCookies loads the page's cookies into jar so requests sent outside
// the browser carry the same session and token cookies.
func (p *Page) CopyCookies(ctx context.Context, jar http.CookieJar) (*url.URL, error) {
	u, err := p.URL(ctx)
	if err != nil {
		return nil, err
	}
	cookies, err := p.page.Context(ctx).Cookies([]string{u.String()})
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	jar.SetCookies(u, out)
	return u, nil
}
