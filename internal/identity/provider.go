package identity

import "context"

// Provider is the identity backend used by the session lifecycle.
type Provider interface {
	SignUp(ctx context.Context, email, password string, data map[string]any) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns the persisted session, refreshing an expired token.
	// It returns (nil, nil) when there is no usable session.
	GetSession(ctx context.Context) (*Session, error)
	UpdateUser(ctx context.Context, data map[string]any) (*Session, error)
	Health(ctx context.Context) error
	Subscribe() *Subscription
}
