package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/net/publicsuffix"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
)

// WhoAmI returns the identity the backend associates with token.
func (c *Client) WhoAmI(ctx context.Context, token string) (domainauth.Identity, error) {
	if token == "" {
		return domainauth.Identity{}, apperrors.Unauthorized("Not authenticated")
	}
	var id domainauth.Identity
	err := c.send(ctx, call{op: "who_am_i", method: http.MethodGet, path: "/api/auth/me", token: token, out: &id})
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("who am i: %w", err)
	}
	return id, nil
}

type loginResponse struct {
	Message string              `json:"message"`
	User    domainauth.Identity `json:"user"`
}

// Login submits credentials. The backend answers with the user and sets the
// session token as a cookie, which is captured through a per-call cookie jar.
func (c *Client) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.LoginResult, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return domainauth.LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create cookie jar")
	}
	hc := *c.http
	hc.Jar = jar

	var out loginResponse
	resp, _, err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   creds,
		out:    &out,
		client: &hc,
	})
	if err != nil {
		return domainauth.LoginResult{}, fmt.Errorf("login: %w", err)
	}

	cookie := tokenCookie(jar.Cookies(c.endpoint("/", nil)), resp.Cookies())
	if cookie == nil || cookie.Value == "" {
		return domainauth.LoginResult{}, apperrors.Internal("backend login response carried no session token")
	}

	return domainauth.LoginResult{
		Identity:  out.User,
		Message:   out.Message,
		Token:     cookie.Value,
		ExpiresAt: tokenExpiry(cookie, time.Now()),
	}, nil
}

// Logout revokes token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.send(ctx, call{op: "logout", method: http.MethodPost, path: "/api/auth/logout", token: token}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// tokenCookie prefers the jar, which applies domain rules, and falls back to
// the raw Set-Cookie headers for cookies the jar refuses (Secure over http).
func tokenCookie(fromJar, fromResponse []*http.Cookie) *http.Cookie {
	for _, set := range [][]*http.Cookie{fromJar, fromResponse} {
		for _, ck := range set {
			if ck.Name == TokenCookie {
				return ck
			}
		}
	}
	return nil
}

// tokenExpiry reads the exp claim of the JWT without verifying it; this process
// only needs to know how long the backend will honour the token. It falls back
// to the cookie's own expiry, or zero when neither is known.
func tokenExpiry(ck *http.Cookie, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimPrefix(ck.Value, "Bearer "), claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	switch {
	case ck.MaxAge > 0:
		return now.Add(time.Duration(ck.MaxAge) * time.Second)
	case !ck.Expires.IsZero():
		return ck.Expires
	default:
		return time.Time{}
	}
}
