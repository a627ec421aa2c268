package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Session is an authenticated provider session.
type Session struct {
	Token  *oauth2.Token `json:"-"`
	UserID uuid.UUID     `json:"user_id"`
	Email  string        `json:"email"`
}

// Clone returns a copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Token != nil {
		tok := *s.Token
		cp.Token = &tok
	}
	return &cp
}

// TokenStore persists the client's single session token between runs.
type TokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
	Clear(ctx context.Context) error
}

type MemoryTokenStore struct {
	mu  sync.Mutex
	tok *oauth2.Token
}

func NewMemoryTokenStore() *MemoryTokenStore { return &MemoryTokenStore{} }

func (s *MemoryTokenStore) Load(context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, nil
	}
	tok := *s.tok
	return &tok, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == nil {
		s.tok = nil
		return nil
	}
	cp := *tok
	s.tok = &cp
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}
