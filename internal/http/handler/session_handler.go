package handler

import (
	"net/http"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/http/response"
	"github.com/anivault/anivault/internal/notify"
	"github.com/anivault/anivault/internal/session"
)

// PhaseSource reports where session startup currently is.
type PhaseSource interface {
	Phase() session.Phase
}

type SessionHandler struct {
	store *session.Store
	phase PhaseSource
	feed  *notify.Feed
}

func NewSessionHandler(store *session.Store, phase PhaseSource, feed *notify.Feed) *SessionHandler {
	return &SessionHandler{store: store, phase: phase, feed: feed}
}

type sessionInfo struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type sessionView struct {
	User          *domain.User  `json:"user"`
	Session       *sessionInfo  `json:"session"`
	Authenticated bool          `json:"authenticated"`
	Loading       bool          `json:"loading"`
	Initialized   bool          `json:"initialized"`
	Error         string        `json:"error,omitempty"`
	Phase         session.Phase `json:"phase"`
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.store.Snapshot()
	view := sessionView{
		User:          st.User,
		Authenticated: st.Authenticated(),
		Loading:       st.Loading,
		Initialized:   st.Initialized,
		Phase:         session.PhaseUninitialized,
	}
	if h.phase != nil {
		view.Phase = h.phase.Phase()
	}
	if st.Err != nil {
		view.Error = st.Err.Error()
	}
	if st.Session != nil {
		info := &sessionInfo{UserID: st.Session.UserID.String(), Email: st.Session.Email}
		if st.Session.Token != nil && !st.Session.Token.Expiry.IsZero() {
			exp := st.Session.Token.Expiry.UTC()
			info.ExpiresAt = &exp
		}
		view.Session = info
	}
	response.JSON(w, r, http.StatusOK, view)
}

// Notifications returns and clears pending notifications. With ?peek=1 the
// feed is left untouched.
func (h *SessionHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		response.JSON(w, r, http.StatusOK, []notify.Notification{})
		return
	}
	var items []notify.Notification
	if r.URL.Query().Get("peek") == "1" {
		items = h.feed.Recent()
	} else {
		items = h.feed.Drain()
	}
	if items == nil {
		items = []notify.Notification{}
	}
	response.JSON(w, r, http.StatusOK, items)
}
