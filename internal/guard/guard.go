// Package guard gates the role-specific page areas of the academy.
//
// Each request mounts one evaluation. The mount starts LOADING, syncs the
// session user with the backend profile endpoint for the user's role family,
// and settles once in AUTHORIZED or UNAUTHORIZED. An error payload from the
// profile endpoint means the credential is stale, so the session is cleared
// before redirecting. A role mismatch only redirects.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"dejure-gateway/internal/event"
	"dejure-gateway/internal/model"
	"dejure-gateway/internal/session"
)

const (
	AdminLoginPath  = "/admin/login"
	MentorLoginPath = "/mentor/login"
	SiteRootPath    = "/"
)

type State int

const (
	StateLoading State = iota
	StateAuthorized
	StateUnauthorized
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateAuthorized:
		return "AUTHORIZED"
	case StateUnauthorized:
		return "UNAUTHORIZED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoToken            Reason = "no_token"
	ReasonNoRole             Reason = "no_role"
	ReasonRoleMismatch       Reason = "role_mismatch"
	ReasonPermissionDenied   Reason = "permission_denied"
	ReasonFetchFailed        Reason = "fetch_failed"
	ReasonSessionUnavailable Reason = "session_unavailable"
	ReasonAbandoned          Reason = "abandoned"
)

type Decision struct {
	State          State
	Reason         Reason
	Redirect       string
	ClearedSession bool
	Session        model.Session
	Err            error
}

type ProfileFetcher interface {
	FetchProfile(ctx context.Context, family model.RoleFamily, token string) (*model.UserProfile, error)
}

type Sessions interface {
	Snapshot(ctx context.Context, sessionID string) (model.Session, error)
	BeginFetch(sessionID string) *session.Fetch
	Clear(ctx context.Context, sessionID string) error
	SessionID(r *http.Request) string
	ExpireCookie(w http.ResponseWriter)
}

type Deps struct {
	Sessions Sessions
	Profiles ProfileFetcher
	// Flight coalesces profile fetches across guards; one is created when nil.
	Flight *singleflight.Group
	Bus    event.Bus
	Logger *slog.Logger
}

type Guard struct {
	required model.Role
	family   model.RoleFamily
	sessions Sessions
	profiles ProfileFetcher
	flight   *singleflight.Group
	bus      event.Bus
	logger   *slog.Logger
}

var errSessionStore = errors.New("session store")

func New(required model.Role, deps Deps) (*Guard, error) {
	family, ok := required.Family()
	if !ok {
		return nil, fmt.Errorf("guard: %w: %q", model.ErrUnknownRole, required)
	}
	if deps.Sessions == nil || deps.Profiles == nil {
		return nil, errors.New("guard: sessions and profiles are required")
	}
	if deps.Flight == nil {
		deps.Flight = &singleflight.Group{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Guard{
		required: required,
		family:   family,
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		flight:   deps.Flight,
		bus:      deps.Bus,
		logger:   deps.Logger.With("guard", string(required)),
	}, nil
}

func (g *Guard) RequiredRole() model.Role {
	return g.required
}

// HasAccess: staff and representative accounts pass admin checks.
func HasAccess(user *model.UserProfile, required model.Role) bool {
	if user == nil || user.Role == "" {
		return false
	}
	if user.Role == required {
		return true
	}

	return required == model.RoleAdmin && (user.Role == model.RoleStaff || user.Role == model.RoleRepresentative)
}

// LoginPath is where a failed check for required redirects.
func LoginPath(required model.Role) string {
	family, _ := required.Family()
	switch family {
	case model.FamilyAdmin:
		return AdminLoginPath
	case model.FamilyMentor:
		return MentorLoginPath
	case model.FamilyLearner:
		return SiteRootPath
	}

	return SiteRootPath
}

type Mount struct {
	guard     *Guard
	sessionID string

	once     sync.Once
	mu       sync.Mutex
	decision Decision
}

func (g *Guard) Mount(sessionID string) *Mount {
	return &Mount{guard: g, sessionID: sessionID, decision: Decision{State: StateLoading}}
}

func (m *Mount) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.decision.State
}

// Run evaluates the mount once; later calls return the first decision.
func (m *Mount) Run(ctx context.Context) Decision {
	m.once.Do(func() {
		decision := m.guard.evaluate(ctx, m.sessionID)
		m.mu.Lock()
		m.decision = decision
		m.mu.Unlock()
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decision
}

func (g *Guard) evaluate(ctx context.Context, sessionID string) Decision {
	sess, err := g.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		return g.deny(ctx, sessionID, ReasonSessionUnavailable, false, err)
	}
	if sess.Token == "" {
		return g.deny(ctx, sessionID, ReasonNoToken, false, nil)
	}

	role := sess.Role()
	family, ok := role.Family()
	if !ok {
		return g.deny(ctx, sessionID, ReasonNoRole, false, nil)
	}

	if err := g.syncProfile(ctx, sessionID, family, sess.Token, role); err != nil {
		var denied interface{ PermissionDenied() bool }
		switch {
		case ctx.Err() != nil:
			return Decision{State: StateLoading, Reason: ReasonAbandoned, Err: ctx.Err()}
		case errors.As(err, &denied) && denied.PermissionDenied():
			return g.deny(ctx, sessionID, ReasonPermissionDenied, false, err)
		case errors.Is(err, errSessionStore):
			return g.deny(ctx, sessionID, ReasonSessionUnavailable, false, err)
		default:
			return g.deny(ctx, sessionID, ReasonFetchFailed, true, err)
		}
	}

	sess, err = g.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		return g.deny(ctx, sessionID, ReasonSessionUnavailable, false, err)
	}
	if sess.Token == "" {
		return g.deny(ctx, sessionID, ReasonNoToken, false, nil)
	}
	if !HasAccess(sess.User, g.required) {
		return g.deny(ctx, sessionID, ReasonRoleMismatch, false, nil)
	}

	return Decision{State: StateAuthorized, Session: sess}
}

// syncProfile fetches the profile for family and writes it into the session.
// Concurrent mounts of one session share the request. The shared request is
// detached from ctx so one caller going away does not fail the others.
func (g *Guard) syncProfile(ctx context.Context, sessionID string, family model.RoleFamily, token string, role model.Role) error {
	key := session.Key(sessionID) + "|" + string(family)

	ch := g.flight.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		fetch := g.sessions.BeginFetch(sessionID)
		defer fetch.Done()

		profile, err := g.profiles.FetchProfile(fetchCtx, family, token)
		if err != nil {
			return nil, err
		}
		if profile.Role != role {
			return nil, fmt.Errorf("%w: %s -> %s", model.ErrRoleChanged, role, profile.Role)
		}

		applied, err := fetch.Apply(fetchCtx, profile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errSessionStore, err)
		}
		if !applied {
			g.logger.Debug("stale profile response discarded", "family", family)
		}
		return applied, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (g *Guard) deny(ctx context.Context, sessionID string, reason Reason, clear bool, cause error) Decision {
	decision := Decision{
		State:    StateUnauthorized,
		Reason:   reason,
		Redirect: LoginPath(g.required),
		Err:      cause,
	}

	if clear {
		if err := g.sessions.Clear(ctx, sessionID); err != nil {
			g.logger.Error("failed to clear session", "error", err)
		} else {
			decision.ClearedSession = true
		}
	}

	attrs := []any{"reason", reason, "redirect", decision.Redirect, "cleared", decision.ClearedSession}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	g.logger.Info("access denied", attrs...)

	if g.bus != nil && sessionID != "" {
		g.bus.Publish(event.New(event.TypeGuardDenied, session.Key(sessionID), map[string]any{
			"requiredRole": g.required,
			"reason":       reason,
			"redirect":     decision.Redirect,
		}))
	}

	return decision
}
