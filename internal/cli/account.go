package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookapp/internal/identity"
	"bookapp/internal/viewstate"
)

func (c *CLI) accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Sign in, sign up and manage your account",
	}
	cmd.AddCommand(
		c.loginCommand(),
		c.googleCommand(),
		c.signupCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.deleteAccountCommand(),
	)
	return cmd
}

// signedIn saves the session of a successful sign-in and greets the user
func (c *CLI) signedIn(cmd *cobra.Command, user *identity.User) error {
	if err := c.app.SaveSession(user); err != nil {
		return err
	}
	name := user.DisplayName
	if name == "" {
		name = user.Email
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed in as "+name))
	return nil
}

func (c *CLI) loginCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}

			s := viewstate.NewLoginState(cmd.Context(), c.app.Identity, c.app.Users, c.logger)
			defer s.Close()

			s.EmailChanged(email)
			s.PasswordChanged(password)
			s.Submit()

			form := s.Snapshot()
			if form.Error != "" {
				return errors.New(form.Error)
			}
			return c.signedIn(cmd, form.User)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (c *CLI) googleCommand() *cobra.Command {
	var idToken string
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Sign in with a Google ID token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := viewstate.NewLoginState(cmd.Context(), c.app.Identity, c.app.Users, c.logger)
			defer s.Close()

			s.SignInWithGoogle(idToken)
			form := s.Snapshot()
			if form.Error != "" {
				return errors.New(form.Error)
			}
			return c.signedIn(cmd, form.User)
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token")
	cmd.MarkFlagRequired("id-token")
	return cmd
}

func (c *CLI) signupCommand() *cobra.Command {
	var firstName, lastName, email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := c.readPassword("Confirm password: ")
			if err != nil {
				return err
			}

			s := viewstate.NewSignUpState(cmd.Context(), c.app.Identity, c.app.Users, c.logger)
			defer s.Close()

			s.FirstNameChanged(firstName)
			s.LastNameChanged(lastName)
			s.EmailChanged(email)
			s.PasswordChanged(password)
			s.ConfirmPasswordChanged(confirm)
			s.Submit()

			form := s.Snapshot()
			if form.Error != "" {
				return errors.New(form.Error)
			}
			return c.signedIn(cmd, form.User)
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := viewstate.NewLoginState(cmd.Context(), c.app.Identity, c.app.Users, c.logger)
			defer s.Close()

			s.SignOut()
			if status := s.Snapshot().Status; status.IsError() {
				return errors.New(status.Message)
			}
			if err := c.app.ClearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed out"))
			return nil
		},
	}
}

func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := c.app.Identity.CurrentUser()
			if user == nil {
				return errors.New(identity.Message(identity.ErrNotSignedIn))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.DisplayName, user.Email)
			fmt.Fprintln(out, mutedStyle.Render("uid "+user.UID))

			profile, err := c.app.Users.UserByProviderID(cmd.Context(), user.UID)
			if err != nil {
				return err
			}
			if profile != nil {
				fmt.Fprintf(out, "Local profile #%d: %s\n", profile.ID, profile.FullName())
			}
			return nil
		},
	}
}

func (c *CLI) deleteAccountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the signed-in account and its profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user := c.app.Identity.CurrentUser()
			if user == nil {
				return errors.New(identity.Message(identity.ErrNotSignedIn))
			}

			profile, err := c.app.Users.UserByProviderID(ctx, user.UID)
			if err != nil {
				return err
			}
			if profile != nil {
				s := viewstate.NewUserState(ctx, c.app.Users, c.logger)
				s.SetCurrentUser(*profile)
				s.DeleteAccount()
				status := s.Snapshot().Status
				s.Close()
				if status.IsError() {
					c.logger.Warn("Profile not removed", zap.String("reason", status.Message))
				}
			}

			if err := c.app.Identity.DeleteAccount(ctx); err != nil {
				return errors.New(identity.Message(err))
			}
			if err := c.app.ClearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Account deleted"))
			return nil
		},
	}
}
