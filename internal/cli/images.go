package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookapp/internal/media"
	"bookapp/internal/models"
	"bookapp/internal/viewstate"
)

var errNoMedia = errors.New("image storage is not configured, set AWS_S3_BUCKET")

// upload stores the image file at path under prefix
func (c *CLI) upload(ctx context.Context, prefix, path string) (string, error) {
	store := c.app.Media()
	if store == nil {
		return "", errNoMedia
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return media.Put(ctx, store, prefix, path, f)
}

// replaced cleans up after an image change. The previous image is removed
// once the new reference is saved, otherwise the new upload is.
func (c *CLI) replaced(ctx context.Context, saved bool, old *string, ref string) {
	discard := old
	if !saved {
		discard = &ref
	}
	if err := media.Discard(ctx, c.app.Media(), discard); err != nil {
		c.logger.Warn("Failed to remove image", zap.Error(err))
	}
}

// imageLink resolves a stored image reference for display
func (c *CLI) imageLink(ctx context.Context, ref *string) string {
	if ref == nil {
		return ""
	}
	link, err := media.Link(ctx, c.app.Media(), *ref)
	if err != nil {
		c.logger.Warn("Failed to resolve image link", zap.Error(err))
		return *ref
	}
	return link
}

func (c *CLI) showBook(ctx context.Context, cmd *cobra.Command, book models.Book) {
	printBook(cmd.OutOrStdout(), book, c.imageLink(ctx, book.ImageURL))
}

func (c *CLI) booksCoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cover ID FILE",
		Short: "Upload a cover image for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			book, err := c.app.Books.Book(ctx, id)
			if err != nil {
				return err
			}
			if book == nil {
				return fmt.Errorf("book %d not found", id)
			}

			ref, err := c.upload(ctx, media.CoverPrefix(id), args[1])
			if err != nil {
				return err
			}
			old := book.ImageURL
			book.ImageURL = &ref

			return c.withBooks(cmd, func(s *viewstate.BookState) error {
				s.UpdateBook(*book)
				status := s.Snapshot().Status
				stored, _ := c.app.Books.Book(ctx, id)
				c.replaced(ctx, stored != nil && models.StringValue(stored.ImageURL) == ref, old, ref)
				if err := report(cmd.OutOrStdout(), status, "Cover updated"); err != nil {
					return err
				}
				c.showBook(ctx, cmd, *book)
				return nil
			})
		},
	}
}

func (c *CLI) usersAvatarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "avatar ID FILE",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			user, err := c.app.Users.User(ctx, id)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %d not found", id)
			}

			ref, err := c.upload(ctx, media.AvatarPrefix(id), args[1])
			if err != nil {
				return err
			}
			old := user.ProfileImagePath
			user.ProfileImagePath = &ref

			s := viewstate.NewUserState(ctx, c.app.Users, c.logger)
			defer s.Close()

			s.UpdateProfile(*user)
			status := s.Snapshot().Status
			stored, _ := c.app.Users.User(ctx, id)
			c.replaced(ctx, stored != nil && models.StringValue(stored.ProfileImagePath) == ref, old, ref)
			if err := report(cmd.OutOrStdout(), status, "Profile picture updated"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.imageLink(ctx, user.ProfileImagePath))
			return nil
		},
	}
}
