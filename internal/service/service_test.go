package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/identity/identitytest"
	"github.com/anivault/anivault/internal/netutil"
	"github.com/anivault/anivault/internal/notify"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/session"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testIP = "203.0.113.7"

type fixture struct {
	db       *gorm.DB
	store    *session.Store
	provider *identitytest.Provider
	tokens   *identity.MemoryTokenStore
	feed     *notify.Feed
	profiles repository.ProfileRepository
	ipRepo   repository.IPSessionRepository
	tracker  *IPSessionTracker
	loader   *ProfileLoader
	auth     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Profile{}, &domain.IPSession{}, &domain.AnimeEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		db:       db,
		store:    session.NewStore(),
		provider: identitytest.New(uuid.New(), "correct-horse"),
		tokens:   identity.NewMemoryTokenStore(),
		feed:     notify.NewFeed(50),
		profiles: repository.NewProfileRepository(db),
		ipRepo:   repository.NewIPSessionRepository(db),
	}
	f.tracker = NewIPSessionTracker(f.ipRepo, netutil.StaticResolver{IP: testIP}, time.Hour, nil)
	f.loader = NewProfileLoader(f.profiles, f.store, f.provider, f.feed, nil)
	f.auth = NewAuthService(f.provider, f.tokens, f.store, f.tracker, f.loader, f.feed, nil)
	return f
}

func (f *fixture) seedProfile(t *testing.T, id uuid.UUID, username string, role domain.Role) {
	t.Helper()
	if err := f.profiles.Create(context.Background(), &domain.Profile{ID: id, Username: username, Email: "kira@example.com", Role: string(role)}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func (f *fixture) signInAs(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	f.seedProfile(t, f.provider.UserID(), "kira", role)
	user, err := f.auth.Login(context.Background(), "kira@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return user
}

func (f *fixture) lastNotice() notify.Notification {
	items := f.feed.Recent()
	if len(items) == 0 {
		return notify.Notification{}
	}
	return items[len(items)-1]
}

func TestLoginSuccessPopulatesStoreAndTracksIP(t *testing.T) {
	f := newFixture(t)
	f.seedProfile(t, f.provider.UserID(), "", "")

	user, err := f.auth.Login(context.Background(), "  Kira@Example.COM ", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Username != domain.DefaultUsername || user.Role != domain.RoleUser {
		t.Fatalf("expected profile defaults, got %+v", user)
	}
	st := f.store.Snapshot()
	if !st.Authenticated() || st.Loading || !st.Initialized {
		t.Fatalf("unexpected store state: %+v", st)
	}
	if _, err := f.ipRepo.Find(context.Background(), f.provider.UserID(), testIP); err != nil {
		t.Fatalf("expected ip session recorded: %v", err)
	}
	if got := f.lastNotice(); got.Level != notify.LevelSuccess || got.Message != i18n.LoginSuccess {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestLoginInvalidCredentialsIsLocalized(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), "kira@example.com", "wrong")
	var ae *AuthError
	if !errors.As(err, &ae) || ae.Message != i18n.InvalidCredentials {
		t.Fatalf("expected localized auth error, got %v", err)
	}
	if LocalizeAuthError(err) != i18n.InvalidCredentials {
		t.Fatalf("unexpected localization %q", LocalizeAuthError(err))
	}
	st := f.store.Snapshot()
	if st.Loading || st.User != nil || st.Session != nil {
		t.Fatalf("unexpected store state after failure: %+v", st)
	}
	if got := f.lastNotice(); got.Level != notify.LevelError || got.Message != i18n.InvalidCredentials {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestLoginWithoutProfileFailsClosed(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), "kira@example.com", "correct-horse")
	if !errors.Is(err, ErrProfileMissing) {
		t.Fatalf("expected ErrProfileMissing, got %v", err)
	}
	st := f.store.Snapshot()
	if st.User != nil || st.Session != nil || st.Loading {
		t.Fatalf("expected reset store, got %+v", st)
	}
}

func TestLoginSurvivesIPTrackingFailure(t *testing.T) {
	f := newFixture(t)
	f.tracker = NewIPSessionTracker(f.ipRepo, netutil.StaticResolver{Err: netutil.ErrIPUnavailable}, time.Hour, nil)
	f.auth = NewAuthService(f.provider, f.tokens, f.store, f.tracker, f.loader, f.feed, nil)
	f.seedProfile(t, f.provider.UserID(), "kira", domain.RoleUser)

	if _, err := f.auth.Login(context.Background(), "kira@example.com", "correct-horse"); err != nil {
		t.Fatalf("login must not fail on ip tracking: %v", err)
	}
	if !f.store.Snapshot().Authenticated() {
		t.Fatal("expected authenticated store")
	}
}

func TestEmailNormalizedForLoginAndRegister(t *testing.T) {
	f := newFixture(t)
	_, _ = f.auth.Login(context.Background(), "  MiXeD@Example.Com", "wrong")
	if err := f.auth.Register(context.Background(), " MiXeD@Example.Com  ", "pw", "neo"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if f.provider.SignInEmails[0] != "mixed@example.com" {
		t.Fatalf("login email not normalized: %q", f.provider.SignInEmails[0])
	}
	call := f.provider.SignUps[0]
	if call.Email != "mixed@example.com" {
		t.Fatalf("register email not normalized: %q", call.Email)
	}
	if call.Data["username"] != "neo" || call.Data["role"] != "user" {
		t.Fatalf("unexpected signup metadata: %+v", call.Data)
	}
	if got := f.lastNotice(); got.Message != i18n.RegisterSuccess {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestRegisterRejectionPassesProviderMessage(t *testing.T) {
	f := newFixture(t)
	f.provider.SignUpErr = &identity.Error{Status: 422, Message: "User already registered"}
	err := f.auth.Register(context.Background(), "a@b.com", "pw", "neo")
	if err == nil || err.Error() != "User already registered" {
		t.Fatalf("expected provider message, got %v", err)
	}
	if f.store.Snapshot().Loading {
		t.Fatal("loading must be cleared")
	}
}

func TestLogoutAlwaysResets(t *testing.T) {
	cases := map[string]error{
		"remote_ok":    nil,
		"remote_error": errors.New("network down"),
	}
	for name, remoteErr := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.signInAs(t, domain.RoleUser)
			_ = f.tokens.Save(context.Background(), f.provider.Current().Token)
			f.provider.SignOutErr = remoteErr

			err := f.auth.Logout(context.Background())
			if (err != nil) != (remoteErr != nil) {
				t.Fatalf("remoteErr=%v got err=%v", remoteErr, err)
			}
			st := f.store.Snapshot()
			if st.User != nil || st.Session != nil || st.Loading {
				t.Fatalf("store not reset: %+v", st)
			}
			if tok, _ := f.tokens.Load(context.Background()); tok != nil {
				t.Fatal("persisted token must be cleared")
			}
			want := i18n.LogoutSuccess
			if remoteErr != nil {
				want = i18n.LogoutFailed
			}
			if got := f.lastNotice(); got.Message != want {
				t.Fatalf("unexpected notification: %+v", got)
			}
		})
	}
}

func TestLocalizeAuthError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&identity.Error{Status: 400, Message: "Invalid login credentials"}, i18n.InvalidCredentials},
		{&identity.Error{Status: 400, Message: "Email not confirmed"}, i18n.EmailNotConfirmed},
		{&identity.Error{Status: 429, Message: "Too many requests"}, "Too many requests"},
		{fmt.Errorf("x: %w", identity.ErrUnavailable), i18n.ConnectionFailed},
		{errors.New("boom"), i18n.Unexpected},
	}
	for _, tc := range cases {
		if got := LocalizeAuthError(tc.err); got != tc.want {
			t.Fatalf("LocalizeAuthError(%v) = %q want %q", tc.err, got, tc.want)
		}
	}
}

func FuzzNormalizeEmailIdempotent(f *testing.F) {
	f.Add("  Kira@Example.com ")
	f.Add("")
	f.Fuzz(func(t *testing.T, raw string) {
		once := NormalizeEmail(raw)
		if NormalizeEmail(once) != once {
			t.Fatalf("not idempotent for %q", raw)
		}
	})
}
