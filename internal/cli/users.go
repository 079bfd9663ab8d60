package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bookapp/internal/models"
	"bookapp/internal/viewstate"
)

func (c *CLI) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage local user profiles",
	}
	cmd.AddCommand(
		c.usersListCommand(),
		c.usersAddCommand(),
		c.usersCheckCommand(),
		c.usersEditCommand(),
		c.usersPasswordCommand(),
		c.usersAvatarCommand(),
	)
	return cmd
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

func (c *CLI) usersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List local profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := firstOf(cmd.Context(), c.app.Users.AllUsers)
			if err != nil {
				return err
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
}

func (c *CLI) usersAddCommand() *cobra.Command {
	var user models.User
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a local profile with a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password cannot be blank")
			}

			s := viewstate.NewUserState(cmd.Context(), c.app.Users, c.logger)
			defer s.Close()

			s.Signup(user, password)
			snap := s.Snapshot()
			if snap.SignupError != "" {
				return errors.New(snap.SignupError)
			}
			return report(cmd.OutOrStdout(), snap.Status, fmt.Sprintf("Created user #%d", snap.CurrentUser.ID))
		},
	}
	cmd.Flags().StringVar(&user.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&user.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&user.Email, "email", "", "email")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (c *CLI) usersCheckCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a local profile's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}

			s := viewstate.NewUserState(cmd.Context(), c.app.Users, c.logger)
			defer s.Close()

			s.Login(email, password)
			snap := s.Snapshot()
			if snap.LoginError != "" {
				return errors.New(snap.LoginError)
			}
			return report(cmd.OutOrStdout(), snap.Status, "Credentials accepted for "+snap.CurrentUser.FullName())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (c *CLI) usersEditCommand() *cobra.Command {
	var firstName, lastName, phone string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a profile's name or phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			user, err := c.app.Users.User(cmd.Context(), id)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %d not found", id)
			}

			flags := cmd.Flags()
			if flags.Changed("first-name") {
				user.FirstName = strings.TrimSpace(firstName)
			}
			if flags.Changed("last-name") {
				user.LastName = strings.TrimSpace(lastName)
			}
			if flags.Changed("phone") {
				user.PhoneNumber = models.StringPtr(phone)
			}

			s := viewstate.NewUserState(cmd.Context(), c.app.Users, c.logger)
			defer s.Close()

			s.UpdateProfile(*user)
			return report(cmd.OutOrStdout(), s.Snapshot().Status, "Profile updated")
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	return cmd
}

func (c *CLI) usersPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd ID",
		Short: "Set a profile's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			password, err := c.readPassword("New password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password cannot be blank")
			}
			if err := c.app.Users.SetPassword(cmd.Context(), id, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Password updated"))
			return nil
		},
	}
}
