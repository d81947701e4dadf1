package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/5w1tchy/library-client/internal/auth"
	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/store/users"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage accounts (admin)",
	}
	cmd.AddCommand(newUserListCmd(a), newUserGetCmd(a), newUserCreateCmd(a), newUserUpdateCmd(a), newUserDeleteCmd(a))
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	var (
		f    users.Filter
		page int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Search accounts by name, student code or phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			pg, err := users.New(a.deps).List(cmd.Context(), f, page, a.pageSize)
			if err != nil {
				return err
			}
			return renderPage(a, pg, userCols...)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "Match first or last name")
	cmd.Flags().StringVar(&f.StudentCode, "code", "", "Match student code")
	cmd.Flags().StringVar(&f.PhoneNumber, "phone", "", "Match phone number")
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

func newUserGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needSignIn(); err != nil {
				return err
			}
			u, err := users.New(a.deps).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderFields(u, userFields(u))
		},
	}
}

func newUserCreateCmd(a *app) *cobra.Command {
	var form auth.RegisterForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a student account; the password is prompted twice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			var err error
			if form.Password, err = a.readSecret("Password: "); err != nil {
				return err
			}
			if form.Confirm, err = a.readSecret("Confirm password: "); err != nil {
				return err
			}
			u, err := users.New(a.deps).Create(cmd.Context(), form)
			if err != nil {
				return err
			}
			return a.renderFields(u, userFields(u))
		},
	}
	registerFlags(cmd, &form.RegisterInput)
	return cmd
}

func newUserUpdateCmd(a *app) *cobra.Command {
	var (
		next     models.UserUpdate
		password bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an account; unset flags keep their current value",
		Example: `  libctl users update u2 --phone 0901234567
  libctl users update u3 --role ADMIN
  libctl users update u2 --password`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needSignIn(); err != nil {
				return err
			}
			svc := users.New(a.deps)
			cur, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in := users.UpdateInput{UserUpdate: models.UserUpdate{
				FirstName:   cur.FirstName,
				LastName:    cur.LastName,
				Email:       cur.Email,
				PhoneNumber: cur.PhoneNumber,
				RoleName:    models.RoleUser,
			}}
			if cur.HasRole(models.RoleAdmin) {
				in.RoleName = models.RoleAdmin
			}
			fl := cmd.Flags()
			if fl.Changed("first-name") {
				in.FirstName = next.FirstName
			}
			if fl.Changed("last-name") {
				in.LastName = next.LastName
			}
			if fl.Changed("email") {
				in.Email = next.Email
			}
			if fl.Changed("phone") {
				in.PhoneNumber = next.PhoneNumber
			}
			if fl.Changed("role") {
				in.RoleName = strings.ToUpper(next.RoleName)
			}
			if password {
				if in.Password, err = a.readSecret("New password: "); err != nil {
					return err
				}
				if in.Confirm, err = a.readSecret("Confirm password: "); err != nil {
					return err
				}
			}
			u, err := svc.Update(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.renderFields(u, userFields(u))
		},
	}
	f := cmd.Flags()
	f.StringVar(&next.FirstName, "first-name", "", "First name")
	f.StringVar(&next.LastName, "last-name", "", "Last name")
	f.StringVar(&next.Email, "email", "", "Email address")
	f.StringVar(&next.PhoneNumber, "phone", "", "Phone number")
	f.StringVar(&next.RoleName, "role", "", "ADMIN or USER")
	f.BoolVar(&password, "password", false, "Prompt for a new password")
	return cmd
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.needAdmin(); err != nil {
				return err
			}
			if err := users.New(a.deps).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deactivated user %s.\n", args[0])
			return nil
		},
	}
}
