package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteRepo "github.com/sakif/travel-tracker/internal/repository/sqlite"
	"github.com/sakif/travel-tracker/internal/service"
	"github.com/sakif/travel-tracker/internal/session"
	"github.com/sakif/travel-tracker/web"
)

// testApp is the handler wired to an in-memory database and a process-wide
// session store, behind the same routes the server registers.
type testApp struct {
	db       *sqliteRepo.DB
	sessions *session.Global
	router   http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewGlobal(session.DefaultUserID)

	h, err := NewTrackerHandler(
		service.NewTrackerService(db, db, logger),
		service.NewUserService(db, logger),
		sessions,
		web.Templates(),
		logger,
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(session.Middleware(sessions))
	r.Get("/", h.HandleIndex)
	r.Post("/add", h.HandleAddCountry)
	r.Post("/delete-country", h.HandleDeleteCountry)
	r.Post("/user", h.HandleUser)
	r.Get("/new", h.HandleNewUserForm)
	r.Post("/new", h.HandleCreateUser)

	return &testApp{db: db, sessions: sessions, router: r}
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) createUser(t *testing.T, name, color string) int64 {
	t.Helper()
	id, err := a.db.CreateUser(context.Background(), name, color)
	require.NoError(t, err)
	return id
}

func (a *testApp) current() session.State {
	return a.sessions.Load(httptest.NewRequest(http.MethodGet, "/", nil))
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}

// =========================================================================
// INDEX
// =========================================================================

func TestHandleIndex_EmptyDatabase(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Total Countries: 0")
	assert.Contains(t, rec.Body.String(), `data-color="teal"`)
}

func TestHandleIndex_NoCurrentUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "red")
	require.NoError(t, app.sessions.Save(nil, nil, session.None()))

	rec := app.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total Countries: 0")
	assert.Contains(t, rec.Body.String(), `data-color="teal"`)
	assert.Contains(t, rec.Body.String(), "Alice")
	assert.NotContains(t, rec.Body.String(), `class="current"`)
}

func TestHandleIndex_StaleCurrentUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "red")
	require.NoError(t, app.sessions.Save(nil, nil, session.For(99)))

	rec := app.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total Countries: 0")
	assert.Contains(t, rec.Body.String(), `data-color="teal"`)
}

func TestHandleIndex_StoreFailure(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.db.Close())

	rec := app.get("/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error loading page.\n", rec.Body.String())
}

// =========================================================================
// ADD COUNTRY
// =========================================================================

func TestHandleAddCountry_Japan(t *testing.T) {
	app := newTestApp(t)
	id := app.createUser(t, "Alice", "teal")
	require.Equal(t, int64(1), id)

	rec := app.post("/add", url.Values{"country": {"Japan"}})
	assertRedirect(t, rec, "/")

	page := app.get("/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Total Countries: 1")
	assert.Contains(t, page.Body.String(), `data-countries="JP"`)
	assert.Contains(t, page.Body.String(), `class="current"`)
}

func TestHandleAddCountry_FuzzyAndIdempotent(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")

	for _, input := range []string{"japan", "  JAPAN ", "apa"} {
		assertRedirect(t, app.post("/add", url.Values{"country": {input}}), "/")
	}

	page := app.get("/")
	assert.Contains(t, page.Body.String(), "Total Countries: 1")
}

func TestHandleAddCountry_NotFound(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")

	rec := app.post("/add", url.Values{"country": {"Nowhereland"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Country not found. Please check your spelling.")
	assert.Contains(t, rec.Body.String(), "Total Countries: 0")
}

func TestHandleAddCountry_Blank(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")

	assertRedirect(t, app.post("/add", url.Values{"country": {"   "}}), "/")
	assert.Contains(t, app.get("/").Body.String(), "Total Countries: 0")
}

func TestHandleAddCountry_NoCurrentUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")
	require.NoError(t, app.sessions.Save(nil, nil, session.None()))

	rec := app.post("/add", url.Values{"country": {"France"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please select a family member first.")
}

func TestHandleAddCountry_StoreFailure(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.db.Close())

	rec := app.post("/add", url.Values{"country": {"France"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error adding country.\n", rec.Body.String())
}

// =========================================================================
// DELETE COUNTRY
// =========================================================================

func TestHandleDeleteCountry(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "Alice", "teal")
	require.NoError(t, app.db.AddVisit(context.Background(), "FR", alice))

	visits, err := app.db.ListVisited(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, visits, 1)

	form := url.Values{"countryId": {strconvID(visits[0].ID)}}
	assertRedirect(t, app.post("/delete-country", form), "/")

	visits, err = app.db.ListVisited(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestHandleDeleteCountry_OtherUsersVisit(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "Alice", "teal")
	bob := app.createUser(t, "Bob", "red")
	require.NoError(t, app.db.AddVisit(context.Background(), "FR", bob))

	bobVisits, err := app.db.ListVisited(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, bobVisits, 1)

	require.NoError(t, app.sessions.Save(nil, nil, session.For(alice)))
	form := url.Values{"countryId": {strconvID(bobVisits[0].ID)}}
	assertRedirect(t, app.post("/delete-country", form), "/")

	bobVisits, err = app.db.ListVisited(context.Background(), bob)
	require.NoError(t, err)
	assert.Len(t, bobVisits, 1, "another user's visit must survive")
}

func TestHandleDeleteCountry_BadID(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")

	assertRedirect(t, app.post("/delete-country", url.Values{"countryId": {"abc"}}), "/")
	assertRedirect(t, app.post("/delete-country", url.Values{}), "/")
}

// =========================================================================
// USER SWITCH / DELETE
// =========================================================================

func TestHandleUser_AddNew(t *testing.T) {
	app := newTestApp(t)

	assertRedirect(t, app.post("/user", url.Values{"add": {"new"}}), "/new")
}

func TestHandleUser_Switch(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")
	bob := app.createUser(t, "Bob", "red")

	assertRedirect(t, app.post("/user", url.Values{"user": {strconvID(bob)}}), "/")

	assert.Equal(t, session.For(bob), app.current())
	assert.Contains(t, app.get("/").Body.String(), `data-color="red"`)
}

func TestHandleUser_SwitchNotValidated(t *testing.T) {
	app := newTestApp(t)

	assertRedirect(t, app.post("/user", url.Values{"user": {"42"}}), "/")
	assert.Equal(t, session.For(42), app.current())
}

func TestHandleUser_SwitchNonNumeric(t *testing.T) {
	app := newTestApp(t)

	assertRedirect(t, app.post("/user", url.Values{"user": {"bob"}}), "/")
	assert.Equal(t, session.For(session.DefaultUserID), app.current())
}

func TestHandleUser_DeleteCurrent(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "Alice", "teal")
	bob := app.createUser(t, "Bob", "red")
	require.NoError(t, app.db.AddVisit(context.Background(), "JP", alice))

	assertRedirect(t, app.post("/user", url.Values{"delete": {strconvID(alice)}}), "/")

	assert.Equal(t, session.For(bob), app.current())

	users, err := app.db.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].Name)

	visits, err := app.db.ListVisited(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestHandleUser_DeleteLast(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser(t, "Alice", "teal")

	assertRedirect(t, app.post("/user", url.Values{"delete": {strconvID(alice)}}), "/")

	assert.Equal(t, session.None(), app.current())

	page := app.get("/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Total Countries: 0")
	assert.Contains(t, page.Body.String(), `data-color="teal"`)
}

func TestHandleUser_DeleteStoreFailure(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.db.Close())

	rec := app.post("/user", url.Values{"delete": {"1"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error updating user.\n", rec.Body.String())
}

// =========================================================================
// NEW USER
// =========================================================================

func TestHandleNewUserForm(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")

	rec := app.get("/new")

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, color := range UserColors {
		assert.Contains(t, rec.Body.String(), `value="`+color+`"`)
	}
	assert.Contains(t, rec.Body.String(), "Alice")
}

func TestHandleCreateUser(t *testing.T) {
	app := newTestApp(t)

	rec := app.post("/new", url.Values{"name": {"Alice"}, "color": {"teal"}})
	assertRedirect(t, rec, "/")

	users, err := app.db.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, session.For(users[0].ID), app.current())
}

func TestHandleCreateUser_BecomesCurrent(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "Alice", "teal")

	assertRedirect(t, app.post("/new", url.Values{"name": {"Bob"}, "color": {"orange"}}), "/")

	assert.Equal(t, session.For(2), app.current())
	assert.Contains(t, app.get("/").Body.String(), `data-color="orange"`)
}

func TestHandleCreateUser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{
			name:    "duplicate name",
			form:    url.Values{"name": {"Alice"}, "color": {"red"}},
			wantMsg: "User name already exists.",
		},
		{
			name:    "empty name",
			form:    url.Values{"name": {"  "}, "color": {"red"}},
			wantMsg: "Invalid name or color.",
		},
		{
			name:    "name too long",
			form:    url.Values{"name": {"abcdefghijklmnop"}, "color": {"red"}},
			wantMsg: "Invalid name or color.",
		},
		{
			name:    "missing color",
			form:    url.Values{"name": {"Bob"}},
			wantMsg: "Invalid name or color.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			app.createUser(t, "Alice", "teal")

			rec := app.post("/new", tt.form)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)

			users, err := app.db.ListUsers(context.Background())
			require.NoError(t, err)
			assert.Len(t, users, 1, "no user must be created")
			assert.Equal(t, session.For(session.DefaultUserID), app.current())
		})
	}
}

func TestNewTrackerHandler_MissingTemplates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewTrackerHandler(nil, nil, session.NewGlobal(1), web.Static(), logger)
	assert.Error(t, err)
}

func strconvID(id int64) string {
	return strconv.FormatInt(id, 10)
}
