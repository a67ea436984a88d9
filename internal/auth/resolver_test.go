package auth

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

// fakeRoles is an in-memory RoleFinder.
type fakeRoles struct {
	mu    sync.Mutex
	roles map[string]models.PermissionSet
	err   error
	calls []string
}

func (f *fakeRoles) FindRoleByName(_ context.Context, name string) (*models.Role, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	perms, ok := f.roles[name]
	if !ok {
		return nil, nil
	}
	return &models.Role{Name: name, Permissions: perms}, nil
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{roles: map[string]models.PermissionSet{
		"Tester":    {PermViewComment: true},
		"Developer": {PermViewBug: true, PermUpdateBug: true, PermViewComment: false},
		"Manager":   {PermAssignBug: true, PermCloseBug: true, PermViewBug: false},
		"Empty":     {},
	}}
}

func TestResolve_Union(t *testing.T) {
	r := NewRoleResolver(newFakeRoles())

	got, err := r.Resolve(context.Background(), []string{"Developer", "Manager"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := PermissionMap{PermViewBug: true, PermUpdateBug: true, PermAssignBug: true, PermCloseBug: true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolve_GrantedByAnyRole(t *testing.T) {
	roles := newFakeRoles()
	r := NewRoleResolver(roles)

	sets := [][]string{
		{"Tester"},
		{"Developer"},
		{"Tester", "Developer"},
		{"Developer", "Manager"},
		{"Tester", "Developer", "Manager", "Empty"},
	}
	for _, set := range sets {
		got, err := r.Resolve(context.Background(), set)
		if err != nil {
			t.Fatalf("Resolve(%v) error: %v", set, err)
		}
		for _, perm := range AllPermissions() {
			granted := false
			for _, name := range set {
				if roles.roles[name][perm] {
					granted = true
				}
			}
			if got[perm] != granted {
				t.Errorf("Resolve(%v)[%s] = %v, want %v", set, perm, got[perm], granted)
			}
			if !granted {
				if _, present := got[perm]; present {
					t.Errorf("Resolve(%v) holds an entry for ungranted %s", set, perm)
				}
			}
		}
	}
}

func TestResolve_OrderIndependent(t *testing.T) {
	r := NewRoleResolver(newFakeRoles())
	a, _ := r.Resolve(context.Background(), []string{"Tester", "Developer", "Manager"})
	b, _ := r.Resolve(context.Background(), []string{"Manager", "Tester", "Developer"})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Resolve() depends on order: %v vs %v", a, b)
	}
}

func TestResolve_MissingRoleSkipped(t *testing.T) {
	r := NewRoleResolver(newFakeRoles())
	got, err := r.Resolve(context.Background(), []string{"Tester", "Deleted Role"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !reflect.DeepEqual(got, PermissionMap{PermViewComment: true}) {
		t.Errorf("Resolve() = %v, want only viewComment", got)
	}
}

func TestResolve_EmptySet(t *testing.T) {
	roles := newFakeRoles()
	r := NewRoleResolver(roles)
	for _, set := range [][]string{nil, {}, {"", "  "}} {
		got, err := r.Resolve(context.Background(), set)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", set, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Resolve(%q) = %v, want empty non-nil map", set, got)
		}
	}
	if len(roles.calls) != 0 {
		t.Errorf("Resolve() of an empty set queried the store: %v", roles.calls)
	}
}

func TestResolve_DuplicateNamesFetchedOnce(t *testing.T) {
	roles := newFakeRoles()
	r := NewRoleResolver(roles)
	if _, err := r.Resolve(context.Background(), []string{"Tester", "Tester", "Tester"}); err != nil {
		t.Fatal(err)
	}
	if len(roles.calls) != 1 {
		t.Errorf("store queried %d times, want 1", len(roles.calls))
	}
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	roles := newFakeRoles()
	roles.err = storeErr

	got, err := NewRoleResolver(roles).Resolve(context.Background(), []string{"Tester"})
	if !errors.Is(err, storeErr) {
		t.Errorf("Resolve() error = %v, want wrapped store error", err)
	}
	if got != nil {
		t.Errorf("Resolve() returned %v alongside an error", got)
	}
}

func TestResolve_TesterScenario(t *testing.T) {
	r := NewRoleResolver(newFakeRoles())
	perms, err := r.Resolve(context.Background(), []string{"Tester"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(perms, PermissionMap{PermViewComment: true}) {
		t.Fatalf("Resolve(Tester) = %v, want {viewComment: true}", perms)
	}

	ac := &AuthContext{UserID: "u-tester", Roles: []string{"Tester"}, Permissions: perms}
	var mpe *MissingPermissionError
	if err := RequirePermission(ac, PermInsertComment); !errors.As(err, &mpe) {
		t.Errorf("RequirePermission(insertComment) = %v, want MissingPermissionError", err)
	}
	if err := RequirePermission(ac, PermViewComment); err != nil {
		t.Errorf("RequirePermission(viewComment) = %v, want nil", err)
	}
}
