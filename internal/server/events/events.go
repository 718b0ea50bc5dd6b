// Package events carries the notification fired when reconciliation creates
// a new account.
package events

import (
	"context"

	"github.com/dmitrijs2005/dirauth/internal/logging"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
)

// RegistrationSink receives one call per account created from a directory
// identity. It is called synchronously inside the creating transaction and
// must not block on slow work; there is nothing to return.
type RegistrationSink interface {
	UserRegistered(ctx context.Context, user *models.User)
}

// SinkFunc adapts a function to RegistrationSink.
type SinkFunc func(ctx context.Context, user *models.User)

func (f SinkFunc) UserRegistered(ctx context.Context, user *models.User) {
	f(ctx, user)
}

// Nop discards events.
type Nop struct{}

func (Nop) UserRegistered(context.Context, *models.User) {}

// LogSink writes each registration to a logger.
type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) UserRegistered(ctx context.Context, user *models.User) {
	s.logger.Info(ctx, "user registered from directory",
		"user_id", user.ID, "username", user.UserName, "email", user.Email)
}

// Fanout delivers to every sink in order.
type Fanout []RegistrationSink

func (f Fanout) UserRegistered(ctx context.Context, user *models.User) {
	for _, s := range f {
		s.UserRegistered(ctx, user)
	}
}
