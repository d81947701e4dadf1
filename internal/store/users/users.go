package users

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/5w1tchy/library-client/internal/auth"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/query"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

// Filter is the admin user search.
type Filter struct {
	Name        string
	StudentCode string
	PhoneNumber string
}

func (f Filter) Values() url.Values {
	return url.Values{
		"name":        {shared.Normalize(f.Name)},
		"studentCode": {strings.ToUpper(shared.Normalize(f.StudentCode))},
		"phoneNumber": {shared.Normalize(f.PhoneNumber)},
	}
}

// UpdateInput is the edit form. Password is optional; when set it must be
// confirmed.
type UpdateInput struct {
	models.UserUpdate
	Confirm string
}

func (in *UpdateInput) Validate() error {
	var v validate.Errors
	in.FirstName = shared.Normalize(in.FirstName)
	in.LastName = shared.Normalize(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.RoleName = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(in.RoleName), "ROLE_"))

	v.Required("firstName", in.FirstName, "First name is required")
	v.Required("lastName", in.LastName, "Last name is required")
	if v.Required("email", in.Email, "Email is required") {
		v.Check(validate.Email(in.Email), "email", "pattern", "Email is not valid")
	}
	if in.PhoneNumber != "" {
		v.Check(validate.Phone(in.PhoneNumber), "phoneNumber", "pattern", "Phone number is not valid")
	}
	v.Check(in.RoleName == models.RoleAdmin || in.RoleName == models.RoleUser, "roleName", "enum", "Role must be ADMIN or USER")
	if in.Password != "" || in.Confirm != "" {
		v.Check(len(in.Password) >= validate.MinPasswordLen, "password", "min",
			fmt.Sprintf("Password must be at least %d characters", validate.MinPasswordLen))
		v.Check(in.Password == in.Confirm, "confirmPassword", "mismatch", "Passwords do not match")
	}
	return v.Err()
}

type Service struct {
	d shared.Deps
}

func New(d shared.Deps) *Service { return &Service{d: d} }

func (s *Service) List(ctx context.Context, f Filter, page, size int) (models.Page[models.User], error) {
	pg, err := shared.Get[models.Page[models.User]](ctx, s.d, query.Users, "filter", "/users/filter", shared.Paged(f.Values(), page, size))
	if err != nil {
		return pg, fmt.Errorf("users: list: %w", err)
	}
	return pg, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	return shared.Get[models.User](ctx, s.d, query.Users, "get", "/users/"+url.PathEscape(id), nil)
}

// Create registers a user on someone's behalf (admin "add user"). The form is
// checked like a sign-up before anything is sent.
func (s *Service) Create(ctx context.Context, f auth.RegisterForm) (models.User, error) {
	var out models.User
	if _, err := f.Validate(); err != nil {
		return out, err
	}
	if err := s.d.API.Do(ctx, http.MethodPost, "/users", nil, f.RegisterInput, &out); err != nil {
		return out, fmt.Errorf("users: create: %w", err)
	}
	s.d.Cache.Mutated(ctx, query.UserWrite)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (models.User, error) {
	var out models.User
	if err := in.Validate(); err != nil {
		return out, err
	}
	if err := s.d.API.Do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), nil, in.UserUpdate, &out); err != nil {
		return out, fmt.Errorf("users: update %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.UserWrite)
	return out, nil
}

// Delete deactivates a user (soft delete).
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.d.API.Do(ctx, http.MethodPut, "/users/softDelete/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("users: delete %s: %w", id, err)
	}
	s.d.Cache.Mutated(ctx, query.UserWrite)
	return nil
}
