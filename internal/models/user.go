package models

import "strings"

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	StudentCode string `json:"studentCode"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Status      string `json:"status"`
	Roles       []Role `json:"roles"`
}

func (u User) FullName() string { return strings.TrimSpace(u.FirstName + " " + u.LastName) }

// HasRole accepts both "ADMIN" and Spring-style "ROLE_ADMIN".
func (u User) HasRole(name string) bool {
	want := strings.TrimPrefix(strings.ToUpper(name), "ROLE_")
	for _, r := range u.Roles {
		if strings.TrimPrefix(strings.ToUpper(r.Name), "ROLE_") == want {
			return true
		}
	}
	return false
}

func (u User) Borrower() Borrower {
	return Borrower{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, StudentCode: u.StudentCode}
}

// RegisterInput is the body of POST /users.
type RegisterInput struct {
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// UserUpdate is the body of PUT /users/{id}. An empty password keeps the current one.
type UserUpdate struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Password    string `json:"password,omitempty"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	RoleName    string `json:"roleName"`
}
