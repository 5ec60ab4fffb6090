package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/travel-tracker/internal/apperror"
	"github.com/sakif/travel-tracker/internal/repository/seed"
)

// newTestDB returns a fresh in-memory database with the schema and the
// country list loaded. t.Cleanup closes it when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, name, color string) int64 {
	t.Helper()
	id, err := db.CreateUser(context.Background(), name, color)
	if err != nil {
		t.Fatalf("failed to create test user %q: %v", name, err)
	}
	return id
}

// countVisits counts visit rows directly, bypassing the join.
func countVisits(t *testing.T, db *DB, userID int64) int {
	t.Helper()
	var n int
	err := db.conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM visited_countries WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("counting visits: %v", err)
	}
	return n
}

// =========================================================================
// SCHEMA / SEED TESTS
// =========================================================================

func TestNew_SeedsCountries(t *testing.T) {
	db := newTestDB(t)

	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		t.Fatalf("counting countries: %v", err)
	}
	if n != len(seed.Countries) {
		t.Errorf("countries = %d, want %d", n, len(seed.Countries))
	}
}

func TestSeedCountries_Idempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.seedCountries(context.Background()); err != nil {
		t.Fatalf("second seedCountries() error = %v", err)
	}

	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		t.Fatalf("counting countries: %v", err)
	}
	if n != len(seed.Countries) {
		t.Errorf("countries after reseed = %d, want %d", n, len(seed.Countries))
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

// =========================================================================
// USER TESTS
// =========================================================================

func TestListUsers_Empty(t *testing.T) {
	db := newTestDB(t)

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if users == nil {
		t.Error("ListUsers() returned nil, want empty slice")
	}
	if len(users) != 0 {
		t.Errorf("len(users) = %d, want 0", len(users))
	}
}

func TestListUsers_OrderedByID(t *testing.T) {
	db := newTestDB(t)
	first := createTestUser(t, db, "Zed", "red")
	second := createTestUser(t, db, "Amy", "blue")

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].ID != first || users[1].ID != second {
		t.Errorf("order = [%d %d], want [%d %d]", users[0].ID, users[1].ID, first, second)
	}
	if users[0].Name != "Zed" || users[0].Color != "red" {
		t.Errorf("users[0] = %+v", users[0])
	}
}

func TestCreateUser_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "Alice", "teal")

	_, err := db.CreateUser(context.Background(), "Alice", "pink")
	if err == nil {
		t.Fatal("CreateUser() should fail for a duplicate name")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}

	users, _ := db.ListUsers(context.Background())
	if len(users) != 1 {
		t.Errorf("len(users) = %d after duplicate, want 1", len(users))
	}
}

func TestDeleteUser_CascadesVisits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "teal")
	bob := createTestUser(t, db, "Bob", "red")

	for _, code := range []string{"JP", "FR"} {
		if err := db.AddVisit(ctx, code, alice); err != nil {
			t.Fatalf("AddVisit(%s) error = %v", code, err)
		}
	}
	if err := db.AddVisit(ctx, "JP", bob); err != nil {
		t.Fatalf("AddVisit(bob) error = %v", err)
	}

	if err := db.DeleteUser(ctx, alice); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if n := countVisits(t, db, alice); n != 0 {
		t.Errorf("alice visits after delete = %d, want 0", n)
	}
	if n := countVisits(t, db, bob); n != 1 {
		t.Errorf("bob visits after delete = %d, want 1", n)
	}

	users, _ := db.ListUsers(ctx)
	if len(users) != 1 || users[0].ID != bob {
		t.Errorf("users after delete = %+v, want only Bob", users)
	}
}

func TestDeleteUser_Missing(t *testing.T) {
	db := newTestDB(t)
	if err := db.DeleteUser(context.Background(), 42); err != nil {
		t.Errorf("DeleteUser(missing) error = %v, want nil", err)
	}
}

// =========================================================================
// VISIT TESTS
// =========================================================================

func TestAddVisit_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "teal")

	for i := 0; i < 2; i++ {
		if err := db.AddVisit(ctx, "JP", alice); err != nil {
			t.Fatalf("AddVisit() attempt %d error = %v", i+1, err)
		}
	}

	if n := countVisits(t, db, alice); n != 1 {
		t.Errorf("visits = %d after adding JP twice, want 1", n)
	}
}

func TestAddVisit_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	// Foreign keys are on, so a dangling user id is a store failure.
	if err := db.AddVisit(context.Background(), "JP", 999); err == nil {
		t.Error("AddVisit() for a missing user should fail")
	}
}

func TestListVisited_NoCrossUserLeakage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "teal")
	bob := createTestUser(t, db, "Bob", "red")

	_ = db.AddVisit(ctx, "JP", alice)
	_ = db.AddVisit(ctx, "FR", bob)
	_ = db.AddVisit(ctx, "DE", bob)

	visits, err := db.ListVisited(ctx, alice)
	if err != nil {
		t.Fatalf("ListVisited() error = %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("len(visits) = %d, want 1", len(visits))
	}
	if visits[0].CountryCode != "JP" || visits[0].CountryName != "Japan" {
		t.Errorf("visit = %+v, want JP/Japan", visits[0])
	}
}

func TestListVisited_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	visits, err := db.ListVisited(context.Background(), 12345)
	if err != nil {
		t.Fatalf("ListVisited() error = %v", err)
	}
	if len(visits) != 0 {
		t.Errorf("len(visits) = %d, want 0", len(visits))
	}
}

func TestDeleteVisit_OwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "Alice", "teal")
	bob := createTestUser(t, db, "Bob", "red")
	_ = db.AddVisit(ctx, "JP", alice)

	visits, _ := db.ListVisited(ctx, alice)
	if len(visits) != 1 {
		t.Fatalf("setup: len(visits) = %d, want 1", len(visits))
	}
	visitID := visits[0].ID

	// Bob tries to delete Alice's visit: silent no-op.
	if err := db.DeleteVisit(ctx, visitID, bob); err != nil {
		t.Fatalf("DeleteVisit(other user) error = %v", err)
	}
	if n := countVisits(t, db, alice); n != 1 {
		t.Errorf("alice visits after foreign delete = %d, want 1", n)
	}

	if err := db.DeleteVisit(ctx, visitID, alice); err != nil {
		t.Fatalf("DeleteVisit(owner) error = %v", err)
	}
	if n := countVisits(t, db, alice); n != 0 {
		t.Errorf("alice visits after own delete = %d, want 0", n)
	}
}

func TestFindCountryCodes(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name      string
		fragment  string
		wantFirst string
		wantNone  bool
	}{
		{name: "exact name", fragment: "japan", wantFirst: "JP"},
		{name: "substring", fragment: "apa", wantFirst: "JP"},
		{name: "first of many", fragment: "guinea", wantFirst: "GQ"},
		{name: "no match", fragment: "nowhereland", wantNone: true},
		{name: "wildcards are literal", fragment: "%", wantNone: true},
		{name: "underscore is literal", fragment: "j_pan", wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := db.FindCountryCodes(context.Background(), tt.fragment)
			if err != nil {
				t.Fatalf("FindCountryCodes(%q) error = %v", tt.fragment, err)
			}
			if tt.wantNone {
				if len(codes) != 0 {
					t.Errorf("FindCountryCodes(%q) = %v, want none", tt.fragment, codes)
				}
				return
			}
			if len(codes) == 0 || codes[0] != tt.wantFirst {
				t.Errorf("FindCountryCodes(%q) = %v, want first %q", tt.fragment, codes, tt.wantFirst)
			}
		})
	}
}
