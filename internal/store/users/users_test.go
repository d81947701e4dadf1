package users

import (
	"errors"
	"testing"

	"github.com/5w1tchy/library-client/internal/auth"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/sandbox"
	"github.com/5w1tchy/library-client/internal/sandbox/sandboxtest"
	"github.com/5w1tchy/library-client/internal/validate"
)

func TestFilter(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)

	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"student code is uppercased", Filter{StudentCode: "se170001"}, 1},
		{"name", Filter{Name: "binh"}, 1},
		{"no match", Filter{Name: "zzz"}, 0},
		{"all", Filter{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := svc.List(t.Context(), tt.f, 1, 10)
			if err != nil {
				t.Fatal(err)
			}
			if pg.TotalItems != tt.want {
				t.Fatalf("got %d want %d", pg.TotalItems, tt.want)
			}
		})
	}
}

func TestUpdateValidation(t *testing.T) {
	tests := []struct {
		name   string
		in     UpdateInput
		fields []string
	}{
		{
			name:   "blank",
			fields: []string{"firstName", "lastName", "email", "roleName"},
		},
		{
			name: "password not confirmed",
			in: UpdateInput{
				UserUpdate: models.UserUpdate{FirstName: "An", LastName: "Tran", Email: "an@example.edu", RoleName: "ROLE_USER", Password: "abcdefgh"},
				Confirm:    "abcdefgX",
			},
			fields: []string{"confirmPassword"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			var verr *validate.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("err=%v", err)
			}
			for _, f := range tt.fields {
				if !verr.Has(f) {
					t.Errorf("missing %s in %v", f, verr)
				}
			}
		})
	}
}

func TestCreateValidatesBeforeNetwork(t *testing.T) {
	env := sandboxtest.New(t)
	env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)

	tests := []struct {
		name   string
		form   auth.RegisterForm
		fields []string
	}{
		{
			name:   "blank",
			fields: []string{"username", "firstName", "lastName", "email", "phoneNumber", "password", "confirmPassword"},
		},
		{
			name: "bad email and unconfirmed password",
			form: auth.RegisterForm{
				RegisterInput: models.RegisterInput{
					Username: "chi", FirstName: "Chi", LastName: "Le", Email: "chi-at-example",
					PhoneNumber: "0987654321", Password: "secret99",
				},
				Confirm: "secret98",
			},
			fields: []string{"email", "confirmPassword"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := env.Backend.TotalHits()
			_, err := svc.Create(t.Context(), tt.form)
			var verr *validate.Errors
			if !errors.As(err, &verr) {
				t.Fatalf("err=%v", err)
			}
			for _, f := range tt.fields {
				if !verr.Has(f) {
					t.Errorf("missing %s in %v", f, verr)
				}
			}
			if got := env.Backend.TotalHits(); got != hits {
				t.Errorf("invalid form reached the backend (%d requests)", got-hits)
			}
		})
	}

	form := auth.RegisterForm{
		RegisterInput: models.RegisterInput{
			Username: "chi", FirstName: "Chi", LastName: "Le", Email: "chi@example.edu",
			PhoneNumber: "0987654321", Password: "secret99",
		},
		Confirm: "secret99",
	}
	u, err := svc.Create(t.Context(), form)
	if err != nil {
		t.Fatal(err)
	}
	if u.StudentCode != "SE170003" {
		t.Fatalf("created %+v", u)
	}
}

func TestStudentEditsOwnProfile(t *testing.T) {
	env := sandboxtest.New(t)
	me := env.SignIn(t, sandbox.StudentUsername, sandbox.StudentPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	in := UpdateInput{UserUpdate: models.UserUpdate{
		FirstName: "An", LastName: "Tran Van", Email: "an@example.edu", PhoneNumber: "0901234567", RoleName: "USER",
	}}
	profile := auth.New(env.Deps, env.Session)
	if _, err := profile.Me(ctx); err != nil {
		t.Fatal(err)
	}
	u, err := svc.Update(ctx, me.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if u.LastName != "Tran Van" {
		t.Fatalf("updated %+v", u)
	}
	cur, err := profile.Me(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cur.LastName != "Tran Van" {
		t.Fatalf("cached profile after update: %+v", cur)
	}

	in.RoleName = "ADMIN"
	if _, err := svc.Update(ctx, me.ID, in); err == nil {
		t.Fatal("student promoted themselves")
	}
	if _, err := svc.Get(ctx, "u2"); err == nil {
		t.Fatal("student read another profile")
	}
}

func TestSoftDelete(t *testing.T) {
	env := sandboxtest.New(t)
	admin := env.SignIn(t, sandbox.AdminUsername, sandbox.AdminPassword)
	svc := New(env.Deps)
	ctx := t.Context()

	if _, err := svc.List(ctx, Filter{Name: "binh"}, 1, 10); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	pg, err := svc.List(ctx, Filter{Name: "binh"}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !pg.Empty() {
		t.Fatalf("inactive user still listed: %+v", pg)
	}
	if err := svc.Delete(ctx, admin.ID); err == nil {
		t.Fatal("admin deleted themselves")
	}
}
