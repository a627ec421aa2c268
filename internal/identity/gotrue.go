package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anivault/anivault/internal/security"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// GoTrueClient talks to a GoTrue-compatible auth REST API.
type GoTrueClient struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	tokens   TokenStore
	verifier *security.TokenVerifier
	hub      *Hub
	logger   *slog.Logger
	now      func() time.Time
}

type GoTrueOptions struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Tokens   TokenStore
	Verifier *security.TokenVerifier
	Logger   *slog.Logger
}

func NewGoTrueClient(opts GoTrueOptions) *GoTrueClient {
	if opts.Tokens == nil {
		opts.Tokens = NewMemoryTokenStore()
	}
	if opts.Verifier == nil {
		opts.Verifier = security.NewTokenVerifier("", "")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &GoTrueClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/") + "/auth/v1",
		apiKey:  opts.APIKey,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens:   opts.Tokens,
		verifier: opts.Verifier,
		hub:      NewHub(),
		logger:   opts.Logger,
		now:      time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *GoTrueClient) Subscribe() *Subscription { return c.hub.Subscribe() }

func (c *GoTrueClient) SignUp(ctx context.Context, email, password string, data map[string]any) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &resp); err != nil {
		return nil, err
	}
	// Confirmation-required projects answer with the user only.
	if resp.AccessToken == "" {
		return nil, nil
	}
	return c.establish(ctx, &resp, Event{Kind: EventSignedIn})
}

func (c *GoTrueClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	body := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	return c.establish(ctx, &resp, Event{Kind: EventSignedIn, Interactive: true})
}

// SignOut revokes the remote session and always forgets the local token.
func (c *GoTrueClient) SignOut(ctx context.Context) error {
	tok, loadErr := c.tokens.Load(ctx)
	defer func() {
		if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("clear session token failed", "error", err)
		}
		c.hub.Publish(Event{Kind: EventSignedOut})
	}()
	if loadErr != nil {
		return fmt.Errorf("load session token: %w", loadErr)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/logout", tok.AccessToken, nil, nil)
	if ie, ok := AsError(err); ok && (ie.Status == http.StatusUnauthorized || ie.Status == http.StatusNotFound) {
		return nil
	}
	return err
}

func (c *GoTrueClient) GetSession(ctx context.Context) (*Session, error) {
	tok, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, nil
	}
	if tok.Valid() {
		sess, err := c.sessionFromToken(tok, "")
		if err == nil {
			return sess, nil
		}
		c.logger.Warn("stored access token rejected", "error", err)
	}
	if tok.RefreshToken == "" {
		_ = c.tokens.Clear(ctx)
		return nil, nil
	}

	var resp tokenResponse
	body := map[string]any{"refresh_token": tok.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &resp); err != nil {
		if ie, ok := AsError(err); ok && ie.ClientError() {
			c.logger.Info("session refresh rejected", "status", ie.Status, "message", ie.Message)
			_ = c.tokens.Clear(ctx)
			return nil, nil
		}
		return nil, err
	}
	return c.establish(ctx, &resp, Event{Kind: EventTokenRefreshed})
}

func (c *GoTrueClient) UpdateUser(ctx context.Context, data map[string]any) (*Session, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	if err := c.do(ctx, http.MethodPut, "/user", sess.Token.AccessToken, map[string]any{"data": data}, nil); err != nil {
		return nil, err
	}
	c.hub.Publish(Event{Kind: EventUserUpdated, Session: sess})
	return sess, nil
}

func (c *GoTrueClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

// establish persists the token from resp and publishes ev with the new session.
func (c *GoTrueClient) establish(ctx context.Context, resp *tokenResponse, ev Event) (*Session, error) {
	tok := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
	}
	switch {
	case resp.ExpiresAt > 0:
		tok.Expiry = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		tok.Expiry = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	email := ""
	if resp.User != nil {
		email = resp.User.Email
	}
	sess, err := c.sessionFromToken(tok, email)
	if err != nil {
		return nil, err
	}
	if err := c.tokens.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("save session token: %w", err)
	}
	ev.Session = sess
	c.hub.Publish(ev)
	return sess, nil
}

func (c *GoTrueClient) sessionFromToken(tok *oauth2.Token, email string) (*Session, error) {
	claims, err := c.verifier.Parse(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	if email == "" {
		email = claims.Email
	}
	if tok.Expiry.IsZero() && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time.UTC()
	}
	return &Session{Token: tok, UserID: userID, Email: email}, nil
}

func (c *GoTrueClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)
	e := &Error{Status: status, Code: payload.ErrorCode}
	if e.Code == "" {
		e.Code = payload.Error
	}
	for _, m := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	if status >= http.StatusInternalServerError {
		return errors.Join(ErrUnavailable, e)
	}
	return e
}
