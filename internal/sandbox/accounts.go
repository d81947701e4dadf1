package sandbox

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/shared"
	"github.com/5w1tchy/library-client/internal/validate"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	var (
		id, hash string
		roles    []string
	)
	s.mu.Lock()
	if acct, found := s.users[s.byName[strings.TrimSpace(in.Username)]]; found && acct.Status == statusActive {
		id, hash = acct.ID, acct.hash
		for _, role := range acct.Roles {
			roles = append(roles, "ROLE_"+role.Name)
		}
	}
	s.mu.Unlock()
	if id == "" || !checkPassword(in.Password, hash) {
		fail(w, http.StatusUnauthorized, codeUnauthenticated, "Username or password is incorrect")
		return
	}
	tok, _, err := s.tokens.sign(id, roles)
	if err != nil {
		fail(w, http.StatusInternalServerError, codeUncategorized, "Could not issue token")
		return
	}
	reply(w, map[string]any{"token": tok, "authenticated": true})
}

// logout revokes the token in the body. Unknown or invalid tokens are ignored.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &in) {
		return
	}
	if claims, err := s.tokens.parse(in.Token); err == nil {
		s.mu.Lock()
		s.revoked[claims.ID] = true
		s.mu.Unlock()
	}
	reply(w, nil)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = shared.Normalize(in.FirstName)
	in.LastName = shared.Normalize(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	switch {
	case len(in.Username) < 3:
		invalid(w, "username", "Username must be at least 3 characters")
		return
	case len(in.Password) < validate.MinPasswordLen:
		invalid(w, "password", fmt.Sprintf("Password must be at least %d characters", validate.MinPasswordLen))
		return
	case in.Email != "" && !validate.Email(in.Email):
		invalid(w, "email", "Email is not valid")
		return
	case in.PhoneNumber != "" && !validate.Phone(in.PhoneNumber):
		invalid(w, "phoneNumber", "Phone number is not valid")
		return
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		fail(w, http.StatusInternalServerError, codeUncategorized, "Could not hash password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[in.Username]; taken {
		fail(w, http.StatusBadRequest, codeExists, "Username already exists")
		return
	}
	acct := &account{
		User: models.User{
			ID:          uuid.NewString(),
			Username:    in.Username,
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			StudentCode: fmt.Sprintf("SE%d", s.nextCode),
			Email:       in.Email,
			PhoneNumber: in.PhoneNumber,
			Status:      statusActive,
			Roles:       []models.Role{{Name: models.RoleUser}},
		},
		hash: hash,
	}
	s.nextCode++
	s.putAccount(acct)
	reply(w, acct.User)
}

func (s *Server) myInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.users[callerFrom(r).ID]
	if !found {
		notFound(w, "User")
		return
	}
	reply(w, acct.User)
}

func (s *Server) filterUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, code, phone := q.Get("name"), q.Get("studentCode"), q.Get("phoneNumber")

	s.mu.Lock()
	var out []models.User
	for _, a := range s.sortedAccounts() {
		if a.Status != statusActive {
			continue
		}
		if !shared.Contains(a.FullName(), name) && !shared.Contains(a.Username, name) {
			continue
		}
		if !shared.Contains(a.StudentCode, code) || !strings.Contains(a.PhoneNumber, strings.TrimSpace(phone)) {
			continue
		}
		out = append(out, a.User)
	}
	s.mu.Unlock()
	writePage(w, r, out)
}

// sortedAccounts orders accounts by student code for stable paging.
func (s *Server) sortedAccounts() []*account {
	out := make([]*account, 0, len(s.users))
	for _, a := range s.users {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentCode < out[j].StudentCode })
	return out
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !callerFrom(r).canSee(id) {
		fail(w, http.StatusForbidden, codeUnauthorized, "You do not have permission")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.users[id]
	if !found {
		notFound(w, "User")
		return
	}
	reply(w, acct.User)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c := callerFrom(r)
	if !c.canSee(id) {
		fail(w, http.StatusForbidden, codeUnauthorized, "You do not have permission")
		return
	}
	var in models.UserUpdate
	if !decode(w, r, &in) {
		return
	}
	in.FirstName = shared.Normalize(in.FirstName)
	in.LastName = shared.Normalize(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	role := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(in.RoleName), "ROLE_"))
	switch {
	case in.FirstName == "" || in.LastName == "":
		invalid(w, "firstName", "First and last name are required")
		return
	case in.Email != "" && !validate.Email(in.Email):
		invalid(w, "email", "Email is not valid")
		return
	case in.PhoneNumber != "" && !validate.Phone(in.PhoneNumber):
		invalid(w, "phoneNumber", "Phone number is not valid")
		return
	case in.Password != "" && len(in.Password) < validate.MinPasswordLen:
		invalid(w, "password", fmt.Sprintf("Password must be at least %d characters", validate.MinPasswordLen))
		return
	case role != "" && role != models.RoleAdmin && role != models.RoleUser:
		invalid(w, "roleName", "Role must be ADMIN or USER")
		return
	}
	var hash string
	if in.Password != "" {
		h, err := hashPassword(in.Password)
		if err != nil {
			fail(w, http.StatusInternalServerError, codeUncategorized, "Could not hash password")
			return
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.users[id]
	if !found {
		notFound(w, "User")
		return
	}
	if role != "" && !acct.HasRole(role) {
		if !c.Admin {
			fail(w, http.StatusForbidden, codeUnauthorized, "Only an admin can change roles")
			return
		}
		acct.Roles = []models.Role{{Name: role}}
	}
	acct.FirstName, acct.LastName = in.FirstName, in.LastName
	acct.Email, acct.PhoneNumber = in.Email, in.PhoneNumber
	if hash != "" {
		acct.hash = hash
	}
	reply(w, acct.User)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == callerFrom(r).ID {
		invalid(w, "id", "You cannot delete your own account")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.users[id]
	if !found {
		notFound(w, "User")
		return
	}
	acct.Status = statusInactive
	reply(w, nil)
}
