package auth

import (
	"context"

	"github.com/joeydtaylor/neonguard/pkg/session"
)

func (m *Middleware) GetSession(ctx context.Context) session.Data {
	if data, ok := ctx.Value(sessionCtxKey).(session.Data); ok {
		return data
	}
	return session.Data{}
}

func (m *Middleware) GetUser(ctx context.Context) *session.User {
	return m.GetSession(ctx).User
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	return !m.GetSession(ctx).Empty()
}

func (m *Middleware) IsRole(ctx context.Context, role string) bool {
	u := m.GetUser(ctx)
	return u != nil && u.Role == role
}

func (m *Middleware) IsUser(ctx context.Context, id string) bool {
	u := m.GetUser(ctx)
	return u != nil && u.ID == id
}
