// Package handler contains the HTTP handlers of the travel tracker.
//
// Every handler follows the same shape: read the form, read the current user
// from the request context, call a service, then either redirect (success)
// or re-render the page with an inline error (expected failures). Anything
// unexpected becomes a plain-text 500.
package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/travel-tracker/internal/apperror"
	"github.com/sakif/travel-tracker/internal/model"
	"github.com/sakif/travel-tracker/internal/service"
	"github.com/sakif/travel-tracker/internal/session"
)

const pageTitle = "Travel Tracker"

// UserColors are the choices offered on the new-user form.
var UserColors = []string{
	"teal", "powderblue", "chartreuse", "red", "orange",
	"yellow", "olive", "lightpink", "mediumpurple",
}

// TrackerHandler serves the index page, the new-user page and the form posts.
type TrackerHandler struct {
	tracker  *service.TrackerService
	users    *service.UserService
	sessions session.Store
	pages    pages
	logger   *slog.Logger
}

// NewTrackerHandler parses the page templates from templates and returns a
// ready handler. Templates are parsed once here, not per request.
func NewTrackerHandler(
	tracker *service.TrackerService,
	users *service.UserService,
	sessions session.Store,
	templates fs.FS,
	logger *slog.Logger,
) (*TrackerHandler, error) {
	p, err := parsePages(templates, "index", "new")
	if err != nil {
		return nil, err
	}

	return &TrackerHandler{
		tracker:  tracker,
		users:    users,
		sessions: sessions,
		pages:    p,
		logger:   logger,
	}, nil
}

// indexPage is the data bag of index.html.
type indexPage struct {
	Title string
	*service.PageState
	Error string
}

// IsCurrent reports whether id is the selected user.
func (p indexPage) IsCurrent(id int64) bool {
	return p.CurrentUser != nil && p.CurrentUser.ID == id
}

// newUserPage is the data bag of new.html.
type newUserPage struct {
	Title  string
	Users  []model.User
	Colors []string
	Error  string
}

// HandleIndex renders the map and visit list of the current user.
//
// HTTP: GET /
func (h *TrackerHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, "", msgLoadPage)
}

// renderIndex assembles the page state and renders it with errMsg. When the
// page state itself fails, the browser gets failMsg as a 500.
func (h *TrackerHandler) renderIndex(w http.ResponseWriter, r *http.Request, errMsg, failMsg string) {
	state, err := h.tracker.PageState(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, failMsg, err)
		return
	}

	h.render(w, http.StatusOK, "index", indexPage{
		Title:     pageTitle,
		PageState: state,
		Error:     errMsg,
	})
}

// HandleAddCountry marks a country as visited by the current user.
//
// HTTP: POST /add
// FORM: country=<free text>
//
// Blank input is ignored. An unknown country re-renders the index with an
// inline error and status 200.
func (h *TrackerHandler) HandleAddCountry(w http.ResponseWriter, r *http.Request) {
	input := r.PostFormValue("country")
	if strings.TrimSpace(input) == "" {
		redirect(w, r, "/")
		return
	}

	current := session.FromContext(r.Context())
	if !current.Valid {
		h.renderIndex(w, r, msgNoCurrentUser, msgAddCountry)
		return
	}

	_, err := h.tracker.AddCountry(r.Context(), current.UserID, input)
	switch {
	case err == nil:
		redirect(w, r, "/")
	case errors.Is(err, apperror.ErrNotFound):
		h.renderIndex(w, r, msgCountryNotFound, msgAddCountry)
	default:
		h.fail(w, r, msgAddCountry, err)
	}
}

// HandleDeleteCountry removes one of the current user's visits.
//
// HTTP: POST /delete-country
// FORM: countryId=<visit id>
//
// The delete is scoped to the current user, so a forged id belonging to
// someone else changes nothing.
func (h *TrackerHandler) HandleDeleteCountry(w http.ResponseWriter, r *http.Request) {
	visitID, ok := formID(r, "countryId")
	current := session.FromContext(r.Context())
	if !ok || !current.Valid {
		redirect(w, r, "/")
		return
	}

	if err := h.tracker.DeleteCountry(r.Context(), visitID, current.UserID); err != nil {
		h.fail(w, r, msgDeleteCountry, err)
		return
	}
	redirect(w, r, "/")
}

// HandleUser switches, creates or deletes users.
//
// HTTP: POST /user
//
//	add=new     → redirect to the new-user form
//	delete=<id> → delete that user, current becomes the first user left
//	user=<id>   → make that user current (not checked against the table)
func (h *TrackerHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("add") == "new" {
		redirect(w, r, "/new")
		return
	}

	if r.PostFormValue("delete") != "" {
		h.deleteUser(w, r)
		return
	}

	id, ok := formID(r, "user")
	if !ok {
		redirect(w, r, "/")
		return
	}
	if err := h.sessions.Save(w, r, session.For(id)); err != nil {
		h.fail(w, r, msgUpdateUser, err)
		return
	}
	h.logger.Debug("current user switched", slog.Int64("userID", id))
	redirect(w, r, "/")
}

func (h *TrackerHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := formID(r, "delete")
	if !ok {
		redirect(w, r, "/")
		return
	}

	remaining, err := h.users.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, msgUpdateUser, err)
		return
	}

	if err := h.sessions.Save(w, r, session.FirstOrNone(remaining)); err != nil {
		h.fail(w, r, msgUpdateUser, err)
		return
	}
	redirect(w, r, "/")
}

// HandleNewUserForm renders the new-user form.
//
// HTTP: GET /new
func (h *TrackerHandler) HandleNewUserForm(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, msgLoadPage, err)
		return
	}
	h.renderNewUser(w, users, "")
}

// HandleCreateUser adds a family member and makes them current.
//
// HTTP: POST /new
// FORM: name=<≤15 chars>&color=<css color>
//
// Invalid input, a taken name, or a store failure re-render the form with an
// inline message and status 200.
func (h *TrackerHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.users.Create(r.Context(), r.PostFormValue("name"), r.PostFormValue("color"))
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, apperror.ErrValidation):
			msg = msgInvalidUser
		case errors.Is(err, apperror.ErrConflict):
			msg = msgDuplicateUser
		default:
			msg = msgCreateUser
		}

		users, listErr := h.users.List(r.Context())
		if listErr != nil {
			h.fail(w, r, msgCreateUser, listErr)
			return
		}
		h.renderNewUser(w, users, msg)
		return
	}

	if err := h.sessions.Save(w, r, session.For(id)); err != nil {
		h.fail(w, r, msgCreateUser, err)
		return
	}
	redirect(w, r, "/")
}

func (h *TrackerHandler) renderNewUser(w http.ResponseWriter, users []model.User, errMsg string) {
	h.render(w, http.StatusOK, "new", newUserPage{
		Title:  pageTitle + " · New member",
		Users:  users,
		Colors: UserColors,
		Error:  errMsg,
	})
}

// formID parses form field key as a positive id.
func formID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(key)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
