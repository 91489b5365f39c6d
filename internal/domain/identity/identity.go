// Package identity tracks which user is logged in locally.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/localrank/internal/domain/bindable"
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
)

// ErrInvalidUser is returned when logging in with an unusable identity.
var ErrInvalidUser = errors.New("invalid user")

// Provider exposes the current user. CurrentUser returns nil when logged out.
type Provider interface {
	CurrentUser() *model.User
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session is the local login state.
type Session struct {
	user   *bindable.Bindable[*model.User]
	logger logger.Logger
}

// NewSession creates a logged-out session.
func NewSession(opts ...Option) *Session {
	s := &Session{user: bindable.New[*model.User](nil)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("identity")
	}
	return s
}

// Login makes u the current user.
func (s *Session) Login(ctx context.Context, u model.User) error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidUser, u.ID)
	}
	s.user.Set(&u)
	s.logger.Info(ctx, "user logged in", logger.Int64("user_id", u.ID), logger.String("username", u.Username))
	return nil
}

// Logout clears the current user.
func (s *Session) Logout(ctx context.Context) {
	if s.user.Value() == nil {
		return
	}
	s.user.Set(nil)
	s.logger.Info(ctx, "user logged out")
}

// CurrentUser implements Provider.
func (s *Session) CurrentUser() *model.User {
	u := s.user.Value()
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// LocalUser exposes the user cell for observers.
func (s *Session) LocalUser() bindable.Observable[*model.User] {
	return s.user
}
