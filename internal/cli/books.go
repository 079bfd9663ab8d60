package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bookapp/internal/models"
	"bookapp/internal/viewstate"
)

type bookFlags struct {
	title         string
	author        string
	category      string
	description   string
	imageURL      string
	publisher     string
	publishedDate string
	isbn          string
	language      string
	pageCount     int
	rating        float64
}

func (f *bookFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.title, "title", "", "book title")
	flags.StringVar(&f.author, "author", "", "book author")
	flags.StringVar(&f.category, "category", "", "category (default \""+models.DefaultCategory+"\")")
	flags.StringVar(&f.description, "description", "", "short description")
	flags.StringVar(&f.imageURL, "image-url", "", "cover image URL")
	flags.StringVar(&f.publisher, "publisher", "", "publisher")
	flags.StringVar(&f.publishedDate, "published", "", "publication date")
	flags.StringVar(&f.isbn, "isbn", "", "ISBN")
	flags.StringVar(&f.language, "language", "", "language")
	flags.IntVar(&f.pageCount, "pages", 0, "page count")
	flags.Float64Var(&f.rating, "rating", 0, "rating")
}

// apply copies every flag the user set onto book
func (f *bookFlags) apply(flags *pflag.FlagSet, book *models.Book) {
	set := func(name string, fn func()) {
		if flags.Changed(name) {
			fn()
		}
	}
	set("title", func() { book.Title = strings.TrimSpace(f.title) })
	set("author", func() { book.Author = strings.TrimSpace(f.author) })
	set("category", func() { book.Category = strings.TrimSpace(f.category) })
	set("description", func() { book.Description = models.StringPtr(f.description) })
	set("image-url", func() { book.ImageURL = models.StringPtr(f.imageURL) })
	set("publisher", func() { book.Publisher = models.StringPtr(f.publisher) })
	set("published", func() { book.PublishedDate = models.StringPtr(f.publishedDate) })
	set("isbn", func() { book.ISBN = models.StringPtr(f.isbn) })
	set("language", func() { book.Language = models.StringPtr(f.language) })
	set("pages", func() {
		pages := f.pageCount
		book.PageCount = &pages
	})
	set("rating", func() {
		rating := f.rating
		book.Rating = &rating
	})
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", arg)
	}
	return id, nil
}

// withBooks runs fn against a book state container scoped to the command
func (c *CLI) withBooks(cmd *cobra.Command, fn func(s *viewstate.BookState) error) error {
	s := viewstate.NewBookState(cmd.Context(), c.app.Books, c.logger)
	defer s.Close()
	return fn(s)
}

func (c *CLI) booksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List, search and edit books",
	}
	cmd.AddCommand(
		c.booksListCommand(),
		c.booksShowCommand(),
		c.booksSearchCommand(),
		c.booksAddCommand(),
		c.booksEditCommand(),
		c.booksDeleteCommand(),
		c.booksToggleCommand("favorite", "Toggle the favorite flag", (*viewstate.BookState).ToggleFavorite),
		c.booksToggleCommand("download", "Toggle the offline flag", (*viewstate.BookState).ToggleDownload),
		c.booksSyncCommand(),
		c.booksCoverCommand(),
	)
	return cmd
}

func (c *CLI) booksListCommand() *cobra.Command {
	var (
		favorites  bool
		downloaded bool
		category   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stream := c.app.Books.AllBooks
			switch {
			case favorites:
				stream = c.app.Books.FavoriteBooks
			case downloaded:
				stream = c.app.Books.DownloadedBooks
			case category != "":
				stream = func(ctx context.Context) <-chan []models.Book {
					return c.app.Books.BooksByCategory(ctx, category)
				}
			}

			books, err := firstOf(cmd.Context(), stream)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorite books")
	cmd.Flags().BoolVar(&downloaded, "downloaded", false, "only books available offline")
	cmd.Flags().StringVar(&category, "category", "", "only books in this category")
	cmd.MarkFlagsMutuallyExclusive("favorites", "downloaded", "category")
	return cmd
}

func (c *CLI) booksShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			book, err := c.app.Books.Book(cmd.Context(), id)
			if err != nil {
				return err
			}
			if book == nil {
				return fmt.Errorf("book %d not found", id)
			}
			c.showBook(cmd.Context(), cmd, *book)
			return nil
		},
	}
}

func (c *CLI) booksSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search titles, authors and descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			books, err := firstOf(cmd.Context(), func(ctx context.Context) <-chan []models.Book {
				return c.app.Books.SearchBooks(ctx, query)
			})
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}
}

func (c *CLI) booksAddCommand() *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var book models.Book
			f.apply(cmd.Flags(), &book)
			return c.withBooks(cmd, func(s *viewstate.BookState) error {
				s.AddBook(book)
				return report(cmd.OutOrStdout(), s.Snapshot().Status, "Book added: "+book.Title)
			})
		},
	}
	f.register(cmd.Flags())
	cmd.MarkFlagRequired("title")
	return cmd
}

func (c *CLI) booksEditCommand() *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the fields of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			book, err := c.app.Books.Book(cmd.Context(), id)
			if err != nil {
				return err
			}
			if book == nil {
				return fmt.Errorf("book %d not found", id)
			}

			f.apply(cmd.Flags(), book)
			return c.withBooks(cmd, func(s *viewstate.BookState) error {
				s.UpdateBook(*book)
				return report(cmd.OutOrStdout(), s.Snapshot().Status, "Book updated: "+book.Title)
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (c *CLI) booksDeleteCommand() *cobra.Command {
	var (
		category string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "delete [ID]",
		Short: "Delete a book, a whole category or every book",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case all:
				return c.withBooks(cmd, func(s *viewstate.BookState) error {
					s.DeleteAll()
					return report(out, s.Snapshot().Status, "All books deleted")
				})
			case category != "":
				return c.withBooks(cmd, func(s *viewstate.BookState) error {
					s.DeleteCategory(category)
					return report(out, s.Snapshot().Status, "Deleted books in "+category)
				})
			case len(args) == 0:
				return errors.New("give a book id, --category or --all")
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withBooks(cmd, func(s *viewstate.BookState) error {
				s.DeleteBook(id)
				return report(out, s.Snapshot().Status, fmt.Sprintf("Book %d deleted", id))
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "delete every book in this category")
	cmd.Flags().BoolVar(&all, "all", false, "delete every book")
	cmd.MarkFlagsMutuallyExclusive("category", "all")
	return cmd
}

func (c *CLI) booksToggleCommand(use, short string, toggle func(*viewstate.BookState, int64)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withBooks(cmd, func(s *viewstate.BookState) error {
				toggle(s, id)
				if err := report(cmd.OutOrStdout(), s.Snapshot().Status, "Updated"); err != nil {
					return err
				}
				if book, _ := c.app.Books.Book(cmd.Context(), id); book != nil {
					c.showBook(cmd.Context(), cmd, *book)
				}
				return nil
			})
		},
	}
}

func (c *CLI) booksSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull your books from the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBooks(cmd, func(s *viewstate.BookState) error {
				s.Sync()
				snap := s.Snapshot()
				if err := report(cmd.OutOrStdout(), snap.Status, "Sync complete"); err != nil {
					return err
				}
				if last := snap.LastSync; last != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d, inserted %d, skipped %d\n", last.Fetched, last.Inserted, last.Skipped)
				}
				return nil
			})
		},
	}
}
