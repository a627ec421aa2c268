// Package identitytest provides an in-memory identity.Provider for tests.
package identitytest

import (
	"context"
	"sync"
	"time"

	"github.com/anivault/anivault/internal/identity"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type SignUpCall struct {
	Email    string
	Password string
	Data     map[string]any
}

type Provider struct {
	hub *identity.Hub

	mu       sync.Mutex
	session  *identity.Session
	userID   uuid.UUID
	password string

	SignInErr     error
	SignUpErr     error
	SignOutErr    error
	GetSessionErr error
	// HealthErrs is consumed one entry per Health call; once empty Health
	// succeeds.
	HealthErrs []error
	// SessionDelay holds GetSession until it elapses or ctx is done.
	SessionDelay time.Duration

	HealthCalls  int
	SignOutCalls int
	SignInEmails []string
	SignUps      []SignUpCall
}

// New returns a provider that accepts password for a single account with the
// given user id.
func New(userID uuid.UUID, password string) *Provider {
	return &Provider{hub: identity.NewHub(), userID: userID, password: password}
}

func (p *Provider) UserID() uuid.UUID { return p.userID }

// SetSession installs a persisted session without publishing an event.
func (p *Provider) SetSession(email string) *identity.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = p.newSession(email)
	return p.session.Clone()
}

func (p *Provider) Current() *identity.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Clone()
}

// Emit publishes ev to subscribers as the provider would.
func (p *Provider) Emit(ev identity.Event) { p.hub.Publish(ev) }

func (p *Provider) Subscribe() *identity.Subscription { return p.hub.Subscribe() }

func (p *Provider) SignUp(_ context.Context, email, password string, data map[string]any) (*identity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignUps = append(p.SignUps, SignUpCall{Email: email, Password: password, Data: data})
	if p.SignUpErr != nil {
		return nil, p.SignUpErr
	}
	return nil, nil
}

func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (*identity.Session, error) {
	p.mu.Lock()
	p.SignInEmails = append(p.SignInEmails, email)
	if p.SignInErr != nil {
		err := p.SignInErr
		p.mu.Unlock()
		return nil, err
	}
	if password != p.password {
		p.mu.Unlock()
		return nil, &identity.Error{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"}
	}
	p.session = p.newSession(email)
	sess := p.session.Clone()
	p.mu.Unlock()

	p.hub.Publish(identity.Event{Kind: identity.EventSignedIn, Session: sess, Interactive: true})
	return sess, nil
}

func (p *Provider) SignOut(context.Context) error {
	p.mu.Lock()
	p.SignOutCalls++
	p.session = nil
	err := p.SignOutErr
	p.mu.Unlock()

	p.hub.Publish(identity.Event{Kind: identity.EventSignedOut})
	return err
}

func (p *Provider) GetSession(ctx context.Context) (*identity.Session, error) {
	p.mu.Lock()
	delay := p.SessionDelay
	p.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GetSessionErr != nil {
		return nil, p.GetSessionErr
	}
	return p.session.Clone(), nil
}

func (p *Provider) UpdateUser(context.Context, map[string]any) (*identity.Session, error) {
	p.mu.Lock()
	sess := p.session.Clone()
	p.mu.Unlock()
	if sess == nil {
		return nil, identity.ErrNoSession
	}
	p.hub.Publish(identity.Event{Kind: identity.EventUserUpdated, Session: sess})
	return sess, nil
}

func (p *Provider) Health(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.HealthCalls++
	if len(p.HealthErrs) == 0 {
		return nil
	}
	err := p.HealthErrs[0]
	p.HealthErrs = p.HealthErrs[1:]
	return err
}

// Calls returns a snapshot of the recorded call counters.
func (p *Provider) Calls() (health, signOut int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthCalls, p.SignOutCalls
}

func (p *Provider) newSession(email string) *identity.Session {
	return &identity.Session{
		Token: &oauth2.Token{
			AccessToken:  "access-" + uuid.NewString(),
			RefreshToken: "refresh-" + uuid.NewString(),
			Expiry:       time.Now().Add(time.Hour),
		},
		UserID: p.userID,
		Email:  email,
	}
}

var _ identity.Provider = (*Provider)(nil)
