package auth

import (
	"time"

	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/store"
	"github.com/2beens/trainor/internal/supabase"
)

// State is the published auth state. Loading starts out true and stays so
// until the first Init completes.
type State struct {
	Loading         *store.Cell[bool]
	IsAuthenticated *store.Cell[bool]
	User            *store.Cell[*supabase.User]
	Session         *store.Cell[*supabase.Session]
	Error           *store.Cell[string]
	Profile         *store.Cell[*schema.Profile]
}

func NewState() *State {
	return &State{
		Loading:         store.NewCell(true),
		IsAuthenticated: store.NewCell(false),
		User:            store.NewCell[*supabase.User](nil),
		Session:         store.NewCell[*supabase.Session](nil),
		Error:           store.NewCell(""),
		Profile:         store.NewCell[*schema.Profile](nil),
	}
}

// Snapshot is the state as shown to the presentation layer. Tokens stay out.
type Snapshot struct {
	Loading          bool            `json:"loading"`
	IsAuthenticated  bool            `json:"isAuthenticated"`
	User             *supabase.User  `json:"user"`
	SessionExpiresAt *time.Time      `json:"sessionExpiresAt,omitempty"`
	Error            string          `json:"error,omitempty"`
	Profile          *schema.Profile `json:"profile"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Loading:         s.Loading.Get(),
		IsAuthenticated: s.IsAuthenticated.Get(),
		User:            s.User.Get(),
		Error:           s.Error.Get(),
		Profile:         s.Profile.Get(),
	}
	if session := s.Session.Get(); session != nil && session.ExpiresAt > 0 {
		expiresAt := session.ExpiresAtTime().UTC()
		snap.SessionExpiresAt = &expiresAt
	}
	return snap
}

// Watch calls fn on every change of any cell, and once per cell right away.
func (s *State) Watch(fn func()) (unwatch func()) {
	unsubs := []func(){
		s.Loading.Subscribe(func(bool) { fn() }),
		s.IsAuthenticated.Subscribe(func(bool) { fn() }),
		s.User.Subscribe(func(*supabase.User) { fn() }),
		s.Session.Subscribe(func(*supabase.Session) { fn() }),
		s.Error.Subscribe(func(string) { fn() }),
		s.Profile.Subscribe(func(*schema.Profile) { fn() }),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (s *State) publishSession(session *supabase.Session) {
	s.Session.Set(session)
	if session != nil {
		user := session.User
		s.User.Set(&user)
	} else {
		s.User.Set(nil)
	}
	s.IsAuthenticated.Set(session != nil)
}
