package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

func newAdminCommand(d *deps) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Ensure an admin user exists to own imported products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if name == "" {
				name = email
			}

			usr, err := d.repo.EnsureUser(cmd.Context(), stockroom.User{
				Email: email,
				Name:  name,
				Role:  stockroom.RoleAdmin,
			})
			if err != nil {
				return err
			}
			if usr.Role != stockroom.RoleAdmin {
				return fmt.Errorf("user %s already exists with role %s", usr.Email, usr.Role)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s)\n", usr.ID, usr.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the admin")
	cmd.Flags().StringVar(&name, "name", "", "display name, the email if empty")

	return cmd
}
