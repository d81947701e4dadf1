package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/auth"
	"github.com/5w1tchy/library-client/internal/models"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Example: `  libctl login -u an
  echo "$PASS" | libctl login -u an`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = a.readLine("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.readSecret("Password: "); err != nil {
					return err
				}
			}
			me, err := auth.New(a.deps, a.state).Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			return a.render(me, func(w io.Writer) {
				role := "student"
				if me.HasRole(models.RoleAdmin) {
					role = "admin"
				}
				fmt.Fprintf(w, "Signed in as %s (%s, %s)\n", me.FullName(), me.Username, role)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.New(a.deps, a.state).Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newMeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := auth.New(a.deps, a.state).Me(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderFields(me, userFields(me))
		},
	}
}

// registerFlags binds the account fields shared by register and users create.
func registerFlags(cmd *cobra.Command, in *models.RegisterInput) {
	f := cmd.Flags()
	f.StringVarP(&in.Username, "username", "u", "", "Username (3-50 characters)")
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVar(&in.Email, "email", "", "Email address")
	f.StringVar(&in.PhoneNumber, "phone", "", "Phone number")
}

func newRegisterCmd(a *app) *cobra.Command {
	var form auth.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a student account",
		Long: `Create a student account. The password is prompted twice; a weak password
only produces a warning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if form.Password, err = a.readSecret("Password: "); err != nil {
				return err
			}
			if form.Confirm, err = a.readSecret("Confirm password: "); err != nil {
				return err
			}
			u, strength, err := auth.New(a.deps, a.state).Register(cmd.Context(), form)
			if err != nil {
				return err
			}
			if strength.Message != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Password strength: %s %s\n", strength.Message, strings.Join(strength.Suggestions, " "))
			}
			return a.renderFields(u, userFields(u))
		},
	}
	registerFlags(cmd, &form.RegisterInput)
	return cmd
}
