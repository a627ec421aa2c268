package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/oauth2"
)

const tokenFileVersion = 1

var ErrTokenFileCorrupt = errors.New("session token file corrupt")

type tokenFile struct {
	Version int           `json:"v"`
	Token   *oauth2.Token `json:"token,omitempty"`
	Sealed  []byte        `json:"sealed,omitempty"`
}

// FileTokenStore keeps the session token in a single file. With a key the
// token is sealed with secretbox.
type FileTokenStore struct {
	path string
	key  *[32]byte
}

func NewFileTokenStore(path string, key []byte) (*FileTokenStore, error) {
	s := &FileTokenStore{path: path}
	if len(key) > 0 {
		if len(key) != 32 {
			return nil, fmt.Errorf("session file key must be 32 bytes, got %d", len(key))
		}
		s.key = new([32]byte)
		copy(s.key[:], key)
	}
	return s, nil
}

func (s *FileTokenStore) Load(context.Context) (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var f tokenFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenFileCorrupt, err)
	}
	if f.Version != tokenFileVersion {
		return nil, fmt.Errorf("%w: version %d", ErrTokenFileCorrupt, f.Version)
	}
	if f.Sealed == nil {
		if s.key != nil {
			return nil, fmt.Errorf("%w: expected sealed token", ErrTokenFileCorrupt)
		}
		return f.Token, nil
	}
	if s.key == nil {
		return nil, fmt.Errorf("%w: sealed token without key", ErrTokenFileCorrupt)
	}
	if len(f.Sealed) < 24 {
		return nil, fmt.Errorf("%w: short sealed payload", ErrTokenFileCorrupt)
	}
	var nonce [24]byte
	copy(nonce[:], f.Sealed[:24])
	plain, ok := secretbox.Open(nil, f.Sealed[24:], &nonce, s.key)
	if !ok {
		return nil, fmt.Errorf("%w: cannot open sealed token", ErrTokenFileCorrupt)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(plain, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenFileCorrupt, err)
	}
	return &tok, nil
}

func (s *FileTokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return s.Clear(ctx)
	}
	f := tokenFile{Version: tokenFileVersion}
	if s.key == nil {
		f.Token = tok
	} else {
		plain, err := json.Marshal(tok)
		if err != nil {
			return fmt.Errorf("encode token: %w", err)
		}
		var nonce [24]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		f.Sealed = secretbox.Seal(nonce[:], plain, &nonce, s.key)
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear(context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
