package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookapp/internal/app"
	"bookapp/internal/config"
	"bookapp/internal/media"
	"bookapp/internal/repository"
)

type harness struct {
	cli       *CLI
	out       *bytes.Buffer
	passwords []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:         filepath.Join(dir, "bookapp.db"),
		UseMockDB:      true,
		LogLevel:       "info",
		SeedSampleData: true,
		SessionFile:    filepath.Join(dir, "session"),
	}
	a, err := app.NewWithConfig(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown(ctx) })

	h := &harness{out: &bytes.Buffer{}}
	h.cli = New(a, strings.NewReader(""), h.out)
	h.cli.readPassword = func(string) (string, error) {
		require.NotEmpty(t, h.passwords, "unexpected password prompt")
		next := h.passwords[0]
		h.passwords = h.passwords[1:]
		return next, nil
	}
	return h
}

// run executes one command line and returns its output
func (h *harness) run(args ...string) (string, error) {
	h.out.Reset()
	err := h.cli.Execute(context.Background(), args)
	return h.out.String(), err
}

func TestBooks_ListSeeded(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("books", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "The Great Gatsby")
	assert.Contains(t, out, "To Kill a Mockingbird")
	assert.Contains(t, out, "1984")

	out, err = h.run("books", "list", "--category", "Science Fiction")
	require.NoError(t, err)
	assert.Contains(t, out, "1984")
	assert.NotContains(t, out, "The Great Gatsby")
}

func TestBooks_AddSearchEdit(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("books", "add", "--title", "Dune", "--author", "Frank Herbert", "--pages", "412")
	require.NoError(t, err)
	assert.Contains(t, out, "Book added: Dune")

	out, err = h.run("books", "search", "herbert")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, out, "1984")

	books, err := h.cli.app.Books.Search(context.Background(), "Dune")
	require.NoError(t, err)
	require.Len(t, books, 1)
	dune := books[0]
	assert.Equal(t, "Fiction", dune.Category)
	require.NotNil(t, dune.PageCount)
	assert.Equal(t, 412, *dune.PageCount)

	id := strconv.FormatInt(dune.ID, 10)
	_, err = h.run("books", "edit", id, "--category", "Science Fiction")
	require.NoError(t, err)

	out, err = h.run("books", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Science Fiction")
	assert.Contains(t, out, "Frank Herbert")
}

func TestBooks_ToggleAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	books, err := h.cli.app.Books.Search(ctx, "Gatsby")
	require.NoError(t, err)
	require.Len(t, books, 1)
	id := strconv.FormatInt(books[0].ID, 10)

	_, err = h.run("books", "favorite", id)
	require.NoError(t, err)
	out, err := h.run("books", "list", "--favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "The Great Gatsby")

	_, err = h.run("books", "delete", id)
	require.NoError(t, err)
	book, err := h.cli.app.Books.Book(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Nil(t, book)

	out, err = h.run("books", "delete", "--category", "Science Fiction")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted books in Science Fiction")
	out, err = h.run("books", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "1984")

	out, err = h.run("books", "delete", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "All books deleted")
	out, err = h.run("books", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No books found.")
}

func TestBooks_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("books", "show", "abc")
	assert.EqualError(t, err, `invalid book id "abc"`)

	_, err = h.run("books", "show", "999")
	assert.EqualError(t, err, "book 999 not found")

	_, err = h.run("books", "delete")
	assert.Error(t, err)

	_, err = h.run("books", "add", "--title", "Dune")
	assert.EqualError(t, err, "Title and author cannot be blank.")
	_, err = h.run("books", "add", "--title", "  ", "--author", "Frank Herbert")
	assert.EqualError(t, err, "Title and author cannot be blank.")

	out, err := h.run("books", "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error syncing books")
	assert.Contains(t, out, repository.ErrNoSession.Error())
}

func TestAccount_SignupWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	h.passwords = []string{"secret1", "secret2"}
	_, err := h.run("account", "signup", "--email", "ada@example.com")
	assert.EqualError(t, err, "Passwords do not match.")

	h.passwords = []string{"secret1", "secret1"}
	out, err := h.run("account", "signup", "--email", "ada@example.com", "--first-name", "Ada", "--last-name", "Lovelace")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada Lovelace")

	out, err = h.run("account", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "Local profile")

	_, err = h.run("account", "logout")
	require.NoError(t, err)
	_, err = h.run("account", "whoami")
	assert.EqualError(t, err, "You are not signed in.")

	h.passwords = []string{"wrong-password"}
	_, err = h.run("account", "login", "--email", "ada@example.com")
	assert.EqualError(t, err, "Invalid email or password")

	h.passwords = []string{"secret1"}
	out, err = h.run("account", "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as")

	out, err = h.run("account", "delete")
	require.NoError(t, err)
	assert.Contains(t, out, "Account deleted")
}

func TestUsers_AddAndCheck(t *testing.T) {
	h := newHarness(t)

	h.passwords = []string{repository.SampleUserPassword}
	out, err := h.run("users", "check", "--email", repository.SampleUserEmail)
	require.NoError(t, err)
	assert.Contains(t, out, "Credentials accepted")

	h.passwords = []string{"hunter22"}
	_, err = h.run("users", "add", "--email", repository.SampleUserEmail)
	assert.EqualError(t, err, "Email already registered")

	h.passwords = []string{"hunter22"}
	out, err = h.run("users", "add", "--email", "grace@example.com", "--first-name", "Grace")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user")

	out, err = h.run("users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "grace@example.com")

	h.passwords = []string{"nope"}
	_, err = h.run("users", "check", "--email", "grace@example.com")
	assert.EqualError(t, err, "Invalid email or password")
}

func TestStoresAndStats_Offline(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("stores", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available offline")

	out, err := h.run("stats", "--kind", "favorited")
	require.NoError(t, err)
	assert.Contains(t, out, "No favorited activity recorded yet.")

	_, err = h.run("stats", "--kind", "borrowed")
	assert.EqualError(t, err, `unknown activity "borrowed"`)
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))
	return path
}

func TestBooks_Cover(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	books, err := h.cli.app.Books.Search(ctx, "1984")
	require.NoError(t, err)
	require.Len(t, books, 1)
	id := strconv.FormatInt(books[0].ID, 10)
	cover := writeImage(t, "cover.png")

	_, err = h.run("books", "cover", id, cover)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image storage is not configured")

	store := media.NewMemoryStore()
	h.cli.app.SetMedia(store)

	out, err := h.run("books", "cover", id, cover)
	require.NoError(t, err)
	assert.Contains(t, out, "Cover updated")
	assert.Contains(t, out, "memory://covers/"+id+"/")
	assert.Equal(t, 1, store.Len())

	_, err = h.run("books", "cover", id, writeImage(t, "second.png"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	book, err := h.cli.app.Books.Book(ctx, books[0].ID)
	require.NoError(t, err)
	require.NotNil(t, book.ImageURL)
	assert.Contains(t, *book.ImageURL, "img-2.png")

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("not an image"), 0o644))
	_, err = h.run("books", "cover", id, notImage)
	assert.ErrorIs(t, err, media.ErrNotImage)
}

func TestUsers_Avatar(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := media.NewMemoryStore()
	h.cli.app.SetMedia(store)

	user, err := h.cli.app.Users.UserByEmail(ctx, repository.SampleUserEmail)
	require.NoError(t, err)
	require.NotNil(t, user)
	id := strconv.FormatInt(user.ID, 10)

	out, err := h.run("users", "avatar", id, writeImage(t, "me.png"))
	require.NoError(t, err)
	assert.Contains(t, out, "Profile picture updated")
	assert.Contains(t, out, "memory://avatars/"+id+"/")

	user, err = h.cli.app.Users.User(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, user.ProfileImagePath)
	assert.Equal(t, "memory://avatars/"+id+"/img-1.png", *user.ProfileImagePath)

	_, err = h.run("users", "avatar", "999", writeImage(t, "me.png"))
	assert.EqualError(t, err, "user 999 not found")
}
