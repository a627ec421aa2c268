package netutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrIPUnavailable = errors.New("public ip unavailable")

const publicIPCacheKey = "self"

// PublicIPResolver reports the public address this host is seen from.
type PublicIPResolver interface {
	PublicIP(ctx context.Context) (string, error)
}

// LookupResolver asks a JSON lookup service of the form {"ip": "..."}.
// Concurrent callers share one in-flight request.
type LookupResolver struct {
	url    string
	client *http.Client
	cache  IPCache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

func NewLookupResolver(url string, timeout time.Duration, cache IPCache, ttl time.Duration, logger *slog.Logger) *LookupResolver {
	if cache == nil {
		cache = NewNoopIPCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *LookupResolver) PublicIP(ctx context.Context) (string, error) {
	if ip, ok, err := r.cache.Get(ctx, publicIPCacheKey); err != nil {
		r.logger.Warn("public ip cache read failed", "error", err)
	} else if ok {
		return ip, nil
	}

	v, err, _ := r.group.Do(publicIPCacheKey, func() (any, error) {
		return r.fetch(ctx)
	})
	if err != nil {
		return "", err
	}
	ip := v.(string)
	if err := r.cache.Set(ctx, publicIPCacheKey, ip, r.ttl); err != nil {
		r.logger.Warn("public ip cache write failed", "error", err)
	}
	return ip, nil
}

func (r *LookupResolver) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIPUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIPUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: lookup status %d", ErrIPUnavailable, resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrIPUnavailable, err)
	}
	ip, ok := NormalizeIP(body.IP)
	if !ok {
		return "", fmt.Errorf("%w: invalid address %q", ErrIPUnavailable, body.IP)
	}
	return ip, nil
}

// StaticResolver always answers with a fixed address or error.
type StaticResolver struct {
	IP  string
	Err error
}

func (s StaticResolver) PublicIP(context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.IP, nil
}
