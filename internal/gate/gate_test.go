package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
)

func scenarioTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(Config{
		Routes: []Route{
			{Pattern: "/admin", Guard: RequireRole(domainauth.RoleAdmin)},
			{Pattern: "/admin/", Guard: RequireRole(domainauth.RoleAdmin)},
			{Pattern: "/dash", Guard: Authenticated()},
			{Pattern: "/", Guard: Public()},
			{Pattern: "/login"},
			{Pattern: "/about"},
		},
		AnonymousLanding:    "/login",
		UnauthorizedLanding: "/",
		DefaultPath:         "/",
	})
	require.NoError(t, err)
	return tbl
}

var (
	anon  = domainauth.Anonymous()
	user  = domainauth.Authenticated(domainauth.Identity{ID: "u1", Role: domainauth.RoleUser})
	admin = domainauth.Authenticated(domainauth.Identity{ID: "a1", Role: domainauth.RoleAdmin})
)

func TestDecide_Scenario(t *testing.T) {
	tbl := scenarioTable(t)

	assert.Equal(t, Decision{Kind: Redirect, Path: "/login"}, tbl.Decide("/admin", anon))
	assert.Equal(t, Decision{Kind: Redirect, Path: "/"}, tbl.Decide("/admin", user))
	assert.Equal(t, Decision{Kind: Render, Path: "/admin"}, tbl.Decide("/admin", admin))
}

func TestDecide_Properties(t *testing.T) {
	tbl := scenarioTable(t)
	states := []domainauth.SessionState{anon, user, admin}

	t.Run("unguarded routes always render", func(t *testing.T) {
		for _, st := range states {
			for _, p := range []string{"/", "/about", "/login"} {
				assert.Equal(t, Decision{Kind: Render, Path: p}, tbl.Decide(p, st))
			}
		}
	})

	t.Run("authenticated routes", func(t *testing.T) {
		assert.Equal(t, Decision{Kind: Redirect, Path: "/login"}, tbl.Decide("/dash", anon))
		assert.Equal(t, Decision{Kind: Render, Path: "/dash"}, tbl.Decide("/dash", user))
		assert.Equal(t, Decision{Kind: Render, Path: "/dash"}, tbl.Decide("/dash", admin))
	})

	t.Run("anonymous on role route goes to anonymous landing", func(t *testing.T) {
		d, reason := tbl.DecideWithReason("/admin/users/7", anon)
		assert.Equal(t, Decision{Kind: Redirect, Path: "/login"}, d)
		assert.Equal(t, ReasonAnonymous, reason)
	})

	t.Run("role mismatch in subtree", func(t *testing.T) {
		d, reason := tbl.DecideWithReason("/admin/users", user)
		assert.Equal(t, Decision{Kind: Redirect, Path: "/"}, d)
		assert.Equal(t, ReasonRoleMismatch, reason)
	})

	t.Run("unresolved always loads", func(t *testing.T) {
		for _, p := range []string{"/", "/admin", "/dash", "/nowhere"} {
			d, reason := tbl.DecideWithReason(p, domainauth.Unresolved())
			assert.Equal(t, Loading, d.Kind)
			assert.Equal(t, ReasonUnresolved, reason)
		}
	})

	t.Run("unknown path redirects to default", func(t *testing.T) {
		for _, st := range states {
			d, reason := tbl.DecideWithReason("/nowhere", st)
			assert.Equal(t, Decision{Kind: Redirect, Path: "/"}, d)
			assert.Equal(t, ReasonUnknownPath, reason)
			// The destination itself is terminal.
			assert.Equal(t, Render, tbl.Decide(d.Path, st).Kind)
		}
	})

	t.Run("exact route does not match subtree", func(t *testing.T) {
		assert.Equal(t, Decision{Kind: Redirect, Path: "/"}, tbl.Decide("/dash/extra", user))
	})
}

func TestLookup_LongestPrefixWins(t *testing.T) {
	tbl, err := NewTable(Config{
		Routes: []Route{
			{Pattern: "/"},
			{Pattern: "/login"},
			{Pattern: "/docs/", Guard: Authenticated()},
			{Pattern: "/docs/public/", Guard: Public()},
		},
		AnonymousLanding:    "/login",
		UnauthorizedLanding: "/",
		DefaultPath:         "/",
	})
	require.NoError(t, err)

	g, ok := tbl.Lookup("/docs/public/readme")
	require.True(t, ok)
	assert.Equal(t, LevelPublic, g.Level)

	g, ok = tbl.Lookup("/docs/private")
	require.True(t, ok)
	assert.Equal(t, LevelAuthenticated, g.Level)

	_, ok = tbl.Lookup("/doc")
	assert.False(t, ok)
}

func TestNewTable_Validation(t *testing.T) {
	base := func() Config {
		return Config{
			Routes: []Route{
				{Pattern: "/"},
				{Pattern: "/login"},
				{Pattern: "/dash", Guard: Authenticated()},
				{Pattern: "/admin", Guard: RequireRole(domainauth.RoleAdmin)},
			},
			AnonymousLanding:    "/login",
			UnauthorizedLanding: "/",
			DefaultPath:         "/",
		}
	}
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"relative pattern", func(c *Config) { c.Routes = append(c.Routes, Route{Pattern: "x"}) }},
		{"unknown role", func(c *Config) {
			c.Routes = append(c.Routes, Route{Pattern: "/x", Guard: RequireRole("root")})
		}},
		{"missing default", func(c *Config) { c.DefaultPath = "" }},
		{"unregistered default", func(c *Config) { c.DefaultPath = "/home" }},
		{"guarded anonymous landing", func(c *Config) { c.AnonymousLanding = "/dash" }},
		{"role-gated unauthorized landing", func(c *Config) { c.UnauthorizedLanding = "/admin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mut(&cfg)
			_, err := NewTable(cfg)
			assert.Error(t, err)
		})
	}

	tbl, err := NewTable(base())
	require.NoError(t, err)
	assert.Equal(t, "/login", tbl.AnonymousLanding())
	assert.Equal(t, "/", tbl.UnauthorizedLanding())
	assert.Equal(t, "/", tbl.DefaultPath())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "role:admin", RequireRole(domainauth.RoleAdmin).String())
	assert.Equal(t, "public", Public().String())
	assert.Equal(t, "authenticated", Authenticated().String())
	assert.Equal(t, "redirect", Redirect.String())
	assert.Equal(t, "loading", Loading.String())
}
