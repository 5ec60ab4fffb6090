// Package session tracks which user is "current".
//
// The current user is the single user all reads and writes apply to. A Store
// decides where that value lives: Global keeps one value for the whole
// process, Cookie keeps one per browser in a signed cookie.
//
// Middleware loads the value once per request and puts it in the request
// context; handlers read it with FromContext and change it through the Store.
package session

import (
	"context"
	"net/http"

	"github.com/sakif/travel-tracker/internal/model"
)

// DefaultUserID is the current user before anyone switches.
const DefaultUserID int64 = 1

// State is the current user id, or no user when Valid is false.
type State struct {
	UserID int64
	Valid  bool
}

// For returns the state selecting user id.
func For(id int64) State {
	return State{UserID: id, Valid: true}
}

// None returns the state with no current user.
func None() State {
	return State{}
}

// FirstOrNone selects the first user of an id-ordered list, or no user when
// the list is empty. It is used after the current user has been deleted.
func FirstOrNone(users []model.User) State {
	if len(users) == 0 {
		return None()
	}
	return For(users[0].ID)
}

// Store holds the current-user state.
type Store interface {
	// Load returns the state for the request.
	Load(r *http.Request) State
	// Save replaces the state. The id is not checked against the users table.
	Save(w http.ResponseWriter, r *http.Request, s State) error
}

type contextKey string

const stateKey contextKey = "session.state"

// Middleware loads the state from store and stores it in the request context.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithState(r.Context(), store.Load(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithState returns a copy of ctx carrying s.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// FromContext returns the state stored by Middleware. A context without one
// yields no current user.
func FromContext(ctx context.Context) State {
	s, _ := ctx.Value(stateKey).(State)
	return s
}
