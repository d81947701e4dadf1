package auth

import (
	"fmt"
	"strings"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

// RegisterForm is the sign-up form, including the confirmation field that is
// never sent.
type RegisterForm struct {
	models.RegisterInput
	Confirm string
}

// Validate normalizes the form and checks it. Password strength never blocks;
// it is returned for display.
func (f *RegisterForm) Validate() (validate.Strength, error) {
	var v validate.Errors
	f.Username = strings.TrimSpace(f.Username)
	f.FirstName = shared.Normalize(f.FirstName)
	f.LastName = shared.Normalize(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)

	if v.Required("username", f.Username, "Username is required") {
		v.Bounded("username", f.Username, 3, 50)
	}
	v.Required("firstName", f.FirstName, "First name is required")
	v.Required("lastName", f.LastName, "Last name is required")
	if v.Required("email", f.Email, "Email is required") {
		v.Check(validate.Email(f.Email), "email", "pattern", "Email is not valid")
	}
	if v.Required("phoneNumber", f.PhoneNumber, "Phone number is required") {
		v.Check(validate.Phone(f.PhoneNumber), "phoneNumber", "pattern", "Phone number is not valid")
	}
	if v.Required("password", f.Password, "Password is required") {
		v.Check(len(f.Password) >= validate.MinPasswordLen, "password", "min",
			fmt.Sprintf("Password must be at least %d characters", validate.MinPasswordLen))
	}
	if v.Required("confirmPassword", f.Confirm, "Please confirm the password") {
		v.Check(f.Confirm == f.Password, "confirmPassword", "mismatch", "Passwords do not match")
	}
	strength := validate.PasswordStrength(f.Password, f.Username, f.Email, f.FirstName, f.LastName)
	return strength, v.Err()
}
