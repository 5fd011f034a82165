package flexportal

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionSource produces an authenticated portal session. The two
// variants, cookie replay and interactive login, are selected by
// configuration at startup.
type SessionSource interface {
	Acquire(ctx context.Context) (*Client, error)
	// Invalidate drops any session that would otherwise be reused, so
	// the next Acquire performs a fresh login.
	Invalidate()
}

// CredentialSource logs in through the portal's login form. It fails
// with ErrCaptchaBlocked when the form is guarded by a challenge; it
// never attempts to solve one.
type CredentialSource struct {
	Options  ClientOptions
	Username string
	Password string
}

func (s CredentialSource) Acquire(ctx context.Context) (*Client, error) {
	client, err := NewClient(ctx, s.Options)
	if err != nil {
		return nil, err
	}
	err = client.LoginUsernamePassword(ctx, s.Username, s.Password)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "session acquired via login form", "username", s.Username)
	return client, nil
}

func (s CredentialSource) Invalidate() {}

// CookieSource replays a browser cookie export instead of touching the
// login form at all.
type CookieSource struct {
	Options ClientOptions
	Path    string
}

func (s CookieSource) Acquire(ctx context.Context) (*Client, error) {
	cookies, err := ReadCookieFile(s.Path)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(ctx, s.Options)
	if err != nil {
		return nil, err
	}
	err = client.LoginWithCookies(ctx, cookies)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "session acquired via cookie replay", "file", s.Path, "cookies", len(cookies))
	return client, nil
}

func (s CookieSource) Invalidate() {}

const cachedSessionKey = "session"

// CachedSource memoizes an inner source so that recovering from a
// transient page-load failure does not force a fresh login every time.
type CachedSource struct {
	inner SessionSource
	cache *expirable.LRU[string, *Client]
}

func NewCachedSource(inner SessionSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: expirable.NewLRU[string, *Client](1, nil, ttl),
	}
}

func (s *CachedSource) Acquire(ctx context.Context) (*Client, error) {
	cached, hit := s.cache.Get(cachedSessionKey)
	if hit {
		return cached, nil
	}

	client, err := s.inner.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Add(cachedSessionKey, client)
	return client, nil
}

func (s *CachedSource) Invalidate() {
	s.cache.Purge()
	s.inner.Invalidate()
}
