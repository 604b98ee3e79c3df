package domain

import (
	"context"
	"sync"
)

type ctxKey string

const SessionCtxKey ctxKey = "mc-session"

const (
	AuthorizationHeader = "authorization"
	LanguageHeader      = "accept-language"
)

// StampPolicy controls whether the fixed-info pass writes a fresh change date.
type StampPolicy int

const (
	StampNo StampPolicy = iota
	StampYes
)

// Session is the request scoped identity. A nil User means an anonymous request.
type Session struct {
	User   *User
	IP     string
	Lang   string
	NodeID string

	mu     sync.Mutex
	groups map[int64]Profile
}

// Memberships returns the group memberships loaded during this request.
func (s *Session) Memberships() (map[int64]Profile, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups, s.groups != nil
}

// SetMemberships keeps the memberships for the rest of the request.
func (s *Session) SetMemberships(groups map[int64]Profile) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if groups == nil {
		groups = map[int64]Profile{}
	}
	s.groups = groups
}

func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

func (s *Session) UserID() (UserID, bool) {
	if !s.Authenticated() {
		return 0, false
	}
	return s.User.ID, true
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionCtxKey, s)
}

// SessionFrom returns the session carried by ctx, or nil when the request has none.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(SessionCtxKey).(*Session)
	return s
}
