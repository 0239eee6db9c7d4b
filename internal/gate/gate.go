// Package gate decides what a request may render given the caller's session state.
//
// Decisions are pure functions of (path, state): the gate keeps no memory of
// earlier decisions, so an identity or role change takes effect on the very
// next request.
package gate

import (
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
)

// Level is the authorization level a route requires.
type Level int

const (
	LevelPublic Level = iota
	LevelAuthenticated
	LevelRole
)

// Guard is a route's authorization requirement. Role is only used with LevelRole.
type Guard struct {
	Level Level
	Role  domainauth.Role
}

// Public returns a guard that always renders.
func Public() Guard { return Guard{Level: LevelPublic} }

// Authenticated returns a guard requiring any identity.
func Authenticated() Guard { return Guard{Level: LevelAuthenticated} }

// RequireRole returns a guard requiring an identity with role r.
func RequireRole(r domainauth.Role) Guard { return Guard{Level: LevelRole, Role: r} }

func (g Guard) String() string {
	switch g.Level {
	case LevelPublic:
		return "public"
	case LevelAuthenticated:
		return "authenticated"
	case LevelRole:
		return "role:" + string(g.Role)
	default:
		return "unknown"
	}
}

// Route binds a path pattern to a guard.
// A pattern ending in "/" (other than "/" itself) matches the whole subtree below it;
// any other pattern matches exactly.
type Route struct {
	Pattern string
	Guard   Guard
}

// Config is the static routing configuration.
type Config struct {
	Routes              []Route
	AnonymousLanding    string
	UnauthorizedLanding string
	DefaultPath         string
}

// Kind tags a Decision.
type Kind int

const (
	// Render means the requested content may be shown.
	Render Kind = iota
	// Redirect means navigation must be replaced with Decision.Path.
	Redirect
	// Loading means the session is unresolved and nothing may be decided yet.
	Loading
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict for one request.
// Path is the requested path for Render and the destination for Redirect.
type Decision struct {
	Kind Kind
	Path string
}

// Reason explains a decision for logs and metrics.
type Reason string

const (
	ReasonUnresolved   Reason = "unresolved"
	ReasonAllowed      Reason = "allowed"
	ReasonAnonymous    Reason = "anonymous"
	ReasonRoleMismatch Reason = "role_mismatch"
	ReasonUnknownPath  Reason = "unknown_path"
)

// Table is an immutable routing table. It is safe for concurrent use.
type Table struct {
	exact               map[string]Guard
	prefixes            []Route
	anonymousLanding    string
	unauthorizedLanding string
	defaultPath         string
}

// NewTable validates cfg and builds a Table.
//
// The anonymous landing must be public and the unauthorized landing must not
// require a role, otherwise redirects could loop. The default path must be a
// registered route so that unknown paths terminate.
func NewTable(cfg Config) (*Table, error) {
	t := &Table{
		exact:               make(map[string]Guard),
		anonymousLanding:    cfg.AnonymousLanding,
		unauthorizedLanding: cfg.UnauthorizedLanding,
		defaultPath:         cfg.DefaultPath,
	}
	for _, r := range cfg.Routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route pattern %q must start with /", r.Pattern)
		}
		if r.Guard.Level == LevelRole && !r.Guard.Role.Valid() {
			return nil, fmt.Errorf("route %q requires unknown role %q", r.Pattern, r.Guard.Role)
		}
		if isPrefixPattern(r.Pattern) {
			t.prefixes = append(t.prefixes, r)
			continue
		}
		t.exact[r.Pattern] = r.Guard
	}
	if err := t.validateLandings(); err != nil {
		return nil, err
	}
	return t, nil
}

func isPrefixPattern(p string) bool {
	return p != "/" && strings.HasSuffix(p, "/")
}

func (t *Table) validateLandings() error {
	for name, p := range map[string]string{
		"anonymous landing":    t.anonymousLanding,
		"unauthorized landing": t.unauthorizedLanding,
		"default path":         t.defaultPath,
	} {
		if p == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, ok := t.Lookup(p); !ok {
			return fmt.Errorf("%s %q is not a registered route", name, p)
		}
	}
	if g, _ := t.Lookup(t.anonymousLanding); g.Level != LevelPublic {
		return errors.New("anonymous landing must be a public route")
	}
	if g, _ := t.Lookup(t.unauthorizedLanding); g.Level == LevelRole {
		return errors.New("unauthorized landing must not require a role")
	}
	return nil
}

// Lookup returns the guard for path. Exact routes win over subtree routes,
// and among subtrees the longest pattern wins.
func (t *Table) Lookup(path string) (Guard, bool) {
	if g, ok := t.exact[path]; ok {
		return g, true
	}
	best := -1
	var guard Guard
	for _, r := range t.prefixes {
		if strings.HasPrefix(path, r.Pattern) && len(r.Pattern) > best {
			best = len(r.Pattern)
			guard = r.Guard
		}
	}
	return guard, best >= 0
}

// AnonymousLanding is where anonymous callers are sent.
func (t *Table) AnonymousLanding() string { return t.anonymousLanding }

// UnauthorizedLanding is where callers with the wrong role are sent.
func (t *Table) UnauthorizedLanding() string { return t.unauthorizedLanding }

// DefaultPath is where unknown paths are sent.
func (t *Table) DefaultPath() string { return t.defaultPath }

// Decide maps a requested path and the current session state to a decision.
func (t *Table) Decide(path string, st domainauth.SessionState) Decision {
	d, _ := t.DecideWithReason(path, st)
	return d
}

// DecideWithReason is Decide plus the reason behind the verdict.
func (t *Table) DecideWithReason(path string, st domainauth.SessionState) (Decision, Reason) {
	if st.Kind == domainauth.StateUnresolved {
		return Decision{Kind: Loading, Path: path}, ReasonUnresolved
	}
	guard, ok := t.Lookup(path)
	if !ok {
		return Decision{Kind: Redirect, Path: t.defaultPath}, ReasonUnknownPath
	}
	switch guard.Level {
	case LevelAuthenticated:
		if !st.IsAuthenticated() {
			return Decision{Kind: Redirect, Path: t.anonymousLanding}, ReasonAnonymous
		}
	case LevelRole:
		// The authenticated check always precedes the role check.
		if !st.IsAuthenticated() {
			return Decision{Kind: Redirect, Path: t.anonymousLanding}, ReasonAnonymous
		}
		if !st.HasRole(guard.Role) {
			return Decision{Kind: Redirect, Path: t.unauthorizedLanding}, ReasonRoleMismatch
		}
	}
	return Decision{Kind: Render, Path: path}, ReasonAllowed
}
