package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookapp/internal/activity"
	"bookapp/internal/identity"
	"bookapp/internal/models"
	remotestubs "bookapp/internal/remote/stubs"
	"bookapp/internal/storage"
	localstubs "bookapp/internal/storage/stubs"
)

type fakeSession struct {
	user *identity.User
}

func (f *fakeSession) CurrentUser() *identity.User {
	return f.user
}

type bookFixture struct {
	db       *localstubs.MockDB
	remote   *remotestubs.MemoryRemote
	session  *fakeSession
	recorder *activity.Memory
	repo     *BookRepository
}

func newBookFixture(signedIn bool) *bookFixture {
	f := &bookFixture{
		db:       localstubs.NewMockDB(zap.NewNop()),
		remote:   remotestubs.NewMemoryRemote(),
		session:  &fakeSession{},
		recorder: activity.NewMemory(),
	}
	if signedIn {
		f.session.user = &identity.User{UID: "uid-1", Email: "ada@example.com"}
	}
	f.repo = NewBookRepository(f.db, f.remote, f.session, f.recorder, zap.NewNop())
	return f
}

// waitFor reads snapshots until one satisfies cond
func waitFor[T any](t *testing.T, ch <-chan T, cond func(T) bool) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "stream closed")
			if cond(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func titles(books []models.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestBookRepository_InsertThenFetch(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)

	in := models.Book{Title: "Emma", Author: "Jane Austen", Description: models.StringPtr("Matchmaking"), Category: "Classics"}
	saved, err := f.repo.Insert(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	got, err := f.repo.Book(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	in.ID = got.ID
	in.DateAdded = got.DateAdded
	in.LastModified = got.LastModified
	assert.Equal(t, in, *got)

	missing, err := f.repo.Book(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBookRepository_ToggleFavoriteTwiceRestores(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	once, err := f.repo.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, once.IsFavorite)

	twice, err := f.repo.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, twice.IsFavorite)

	dl, err := f.repo.ToggleDownload(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, dl.IsDownloaded)

	_, err = f.repo.ToggleFavorite(ctx, 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBookRepository_Search(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)

	_, err := f.repo.Insert(ctx, models.Book{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald"})
	require.NoError(t, err)
	_, err = f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	found, err := f.repo.Search(ctx, "GATS")
	require.NoError(t, err)
	assert.Equal(t, []string{"The Great Gatsby"}, titles(found))

	all, err := f.repo.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBookRepository_DeleteRemovesFromAllStreams(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newBookFixture(false)

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)
	_, err = f.repo.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	_, err = f.repo.ToggleDownload(ctx, saved.ID)
	require.NoError(t, err)

	favorites := f.repo.FavoriteBooks(ctx)
	downloads := f.repo.DownloadedBooks(ctx)
	all := f.repo.AllBooks(ctx)
	waitFor(t, favorites, func(b []models.Book) bool { return len(b) == 1 })
	waitFor(t, downloads, func(b []models.Book) bool { return len(b) == 1 })

	require.NoError(t, f.repo.Delete(ctx, saved.ID))

	waitFor(t, all, func(b []models.Book) bool { return len(b) == 0 })
	waitFor(t, favorites, func(b []models.Book) bool { return len(b) == 0 })
	waitFor(t, downloads, func(b []models.Book) bool { return len(b) == 0 })

	assert.NoError(t, f.repo.Delete(ctx, saved.ID), "deleting twice is a no-op")
}

func TestBookRepository_CategoryIsExact(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newBookFixture(false)

	for _, b := range []models.Book{
		{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction"},
		{Title: "Emma", Author: "Jane Austen", Category: "Fiction"},
		{Title: "Rebecca", Author: "Daphne du Maurier", Category: "fiction"},
	} {
		_, err := f.repo.Insert(ctx, b)
		require.NoError(t, err)
	}

	books := waitFor(t, f.repo.BooksByCategory(ctx, "Fiction"), func(b []models.Book) bool { return len(b) > 0 })
	assert.Equal(t, []string{"Emma"}, titles(books))
}

func TestBookRepository_NineteenEightyFourScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newBookFixture(false)

	for _, title := range []string{"Animal Farm", "Brave New World"} {
		_, err := f.repo.Insert(ctx, models.Book{Title: title, Author: "Someone"})
		require.NoError(t, err)
	}

	saved, err := f.repo.Insert(ctx, models.Book{Title: "1984", Author: "George Orwell", Category: "Science Fiction"})
	require.NoError(t, err)

	all := waitFor(t, f.repo.AllBooks(ctx), func(b []models.Book) bool { return len(b) == 3 })
	assert.Equal(t, []string{"1984", "Animal Farm", "Brave New World"}, titles(all))

	toggled, err := f.repo.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)

	favorites := waitFor(t, f.repo.FavoriteBooks(ctx), func(b []models.Book) bool { return len(b) == 1 })
	assert.Equal(t, saved.ID, favorites[0].ID)
}

func TestBookRepository_NoSessionIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)
	saved.Description = models.StringPtr("Matchmaking")
	_, err = f.repo.Update(ctx, saved)
	require.NoError(t, err)
	_, err = f.repo.ToggleDownload(ctx, saved.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.Delete(ctx, saved.ID))

	assert.Empty(t, f.remote.BookDocuments())

	_, err = f.repo.SyncFromRemote(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestBookRepository_MirrorsWhileSignedIn(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(true)

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	docs := f.remote.BookDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, saved.ID, docs[0].LocalID)
	assert.Equal(t, "uid-1", docs[0].UserID)

	saved.Title = "Emma (annotated)"
	_, err = f.repo.Update(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, "Emma (annotated)", f.remote.BookDocuments()[0].Title)

	require.NoError(t, f.repo.Delete(ctx, saved.ID))
	assert.Empty(t, f.remote.BookDocuments())
}

func TestBookRepository_MirrorFailureKeepsLocalBook(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(true)
	f.remote.FailWrites(errors.New("offline"))

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.ErrorIs(t, err, ErrRemoteMirror)
	require.NotZero(t, saved.ID)

	got, err := f.repo.Book(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestBookRepository_UpdateWithoutMirrorDocument(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	f.session.user = &identity.User{UID: "uid-1"}
	saved.Description = models.StringPtr("Matchmaking")
	updated, err := f.repo.Update(ctx, saved)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, updated.LastModified, updated.DateAdded)
}

func TestBookRepository_LocalFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)
	f.db.FailWrites(errors.New("disk full"))

	_, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRemoteMirror)
}

func TestBookRepository_SyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(true)

	docID := f.remote.PutBookDocument(remoteDoc("uid-1", 0, "Remote Only"))
	f.remote.PutBookDocument(remoteDoc("uid-1", 42, "Keeps Its Id"))
	f.remote.PutBookDocument(remoteDoc("someone-else", 0, "Not Mine"))

	result, err := f.repo.SyncFromRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 2, Inserted: 2}, result)

	books, err := f.repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Keeps Its Id", "Remote Only"}, titles(books))

	kept, err := f.repo.Book(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "Keeps Its Id", kept.Title)

	var written int64
	for _, doc := range f.remote.BookDocuments() {
		if doc.ID == docID {
			written = doc.LocalID
		}
	}
	assert.NotZero(t, written, "new local id is written back")

	again, err := f.repo.SyncFromRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 2, Skipped: 2}, again)

	books, err = f.repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestBookRepository_RecordsActivity(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(false)

	saved, err := f.repo.Insert(ctx, models.Book{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)
	_, err = f.repo.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)

	stats, err := f.recorder.TopBooks(ctx, activity.KindFavorited, 5, time.Time{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, saved.ID, stats[0].BookID)

	var kinds []activity.Kind
	for _, e := range f.recorder.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []activity.Kind{activity.KindAdded, activity.KindUpdated, activity.KindFavorited}, kinds)
}

func TestBookRepository_RejectsBlankTitleOrAuthor(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(true)

	for _, b := range []models.Book{
		{Title: "", Author: "Jane Austen"},
		{Title: "Emma", Author: ""},
		{Title: "   ", Author: "\t"},
	} {
		_, err := f.repo.Insert(ctx, b)
		assert.ErrorIs(t, err, ErrInvalidBook, "%+v", b)
	}

	books, err := f.repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Empty(t, f.remote.BookDocuments())

	saved, err := f.repo.Insert(ctx, models.Book{Title: "  Emma ", Author: " Jane Austen"})
	require.NoError(t, err)
	assert.Equal(t, "Emma", saved.Title)
	assert.Equal(t, "Jane Austen", saved.Author)
	assert.Equal(t, models.DefaultCategory, saved.Category)

	saved.Author = "  "
	_, err = f.repo.Update(ctx, saved)
	assert.ErrorIs(t, err, ErrInvalidBook)
	got, err := f.repo.Book(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Austen", got.Author)
}

func TestBookRepository_BulkDeletesRemoveMirrorDocuments(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(true)

	for _, b := range []models.Book{
		{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction"},
		{Title: "Foundation", Author: "Isaac Asimov", Category: "Science Fiction"},
		{Title: "Emma", Author: "Jane Austen", Category: "Classics"},
	} {
		_, err := f.repo.Insert(ctx, b)
		require.NoError(t, err)
	}
	require.Len(t, f.remote.BookDocuments(), 3)

	require.NoError(t, f.repo.DeleteByCategory(ctx, "Science Fiction"))
	docs := f.remote.BookDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, "Emma", docs[0].Title)

	result, err := f.repo.SyncFromRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 1, Skipped: 1}, result)
	books, err := f.repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Emma"}, titles(books))

	require.NoError(t, f.repo.DeleteAll(ctx))
	assert.Empty(t, f.remote.BookDocuments())

	result, err = f.repo.SyncFromRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, result)
	books, err = f.repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBookRepository_BulkDeleteMirrorFailure(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(true)

	_, err := f.repo.Insert(ctx, models.Book{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction"})
	require.NoError(t, err)
	f.remote.FailWrites(errors.New("offline"))

	err = f.repo.DeleteAll(ctx)
	require.ErrorIs(t, err, ErrRemoteMirror)

	books, err := f.repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, books, "local delete is kept")
}
