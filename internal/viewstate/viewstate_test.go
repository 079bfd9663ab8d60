package viewstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookapp/internal/identity"
	"bookapp/internal/models"
	"bookapp/internal/repository"
	remotestubs "bookapp/internal/remote/stubs"
	localstubs "bookapp/internal/storage/stubs"
)

const eventually = 2 * time.Second
const tick = 10 * time.Millisecond

type fixture struct {
	db       *localstubs.MockDB
	remote   *remotestubs.MemoryRemote
	provider *identity.Service
	books    *repository.BookRepository
	users    *repository.UserRepository
}

func newFixture() *fixture {
	logger := zap.NewNop()
	f := &fixture{
		db:       localstubs.NewMockDB(logger),
		remote:   remotestubs.NewMemoryRemote(),
		provider: identity.NewService(identity.NewMemoryAccounts(), nil, []byte("secret"), logger),
	}
	f.books = repository.NewBookRepository(f.db, f.remote, f.provider, nil, logger)
	f.users = repository.NewUserRepository(f.db, f.remote, logger)
	return f
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "idle", Idle().String())
	assert.True(t, Loading().IsLoading())
	assert.Equal(t, "error: boom", Failed("boom").String())
	assert.True(t, Failed("boom").IsError())
}

func TestBookState_MirrorsAndOperations(t *testing.T) {
	f := newFixture()
	s := NewBookState(context.Background(), f.books, zap.NewNop())
	defer s.Close()

	assert.Equal(t, models.DefaultCategory, s.Snapshot().SelectedCategory)

	s.AddBook(models.Book{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Category: "Fiction"})
	s.AddBook(models.Book{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction"})
	assert.Equal(t, PhaseSuccess, s.Snapshot().Status.Phase)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.AllBooks) == 2 && len(snap.CategoryBooks) == 1
	}, eventually, tick)

	gatsby := s.Snapshot().CategoryBooks[0]
	s.ToggleFavorite(gatsby.ID)
	s.ToggleDownload(gatsby.ID)
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.FavoriteBooks) == 1 && len(snap.DownloadedBooks) == 1
	}, eventually, tick)

	s.SelectCategory("Science Fiction")
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.CategoryBooks) == 1 && snap.CategoryBooks[0].Title == "Dune"
	}, eventually, tick)

	results := s.Search("gats")
	require.Len(t, results, 1)
	assert.Equal(t, "The Great Gatsby", results[0].Title)
	assert.Len(t, s.Search(""), 2)

	s.DeleteBook(gatsby.ID)
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return len(snap.AllBooks) == 1 && len(snap.FavoriteBooks) == 0 && len(snap.DownloadedBooks) == 0
	}, eventually, tick)
}

func TestBookState_ErrorsBecomeStatus(t *testing.T) {
	f := newFixture()
	s := NewBookState(context.Background(), f.books, zap.NewNop())
	defer s.Close()

	f.db.FailWrites(errors.New("disk full"))
	s.AddBook(models.Book{Title: "Emma", Author: "Jane Austen"})

	status := s.Snapshot().Status
	assert.Equal(t, PhaseError, status.Phase)
	assert.Contains(t, status.Message, "disk full")

	f.db.FailWrites(nil)
	s.ToggleFavorite(999)
	assert.True(t, s.Snapshot().Status.IsError())

	s.Sync()
	assert.Contains(t, s.Snapshot().Status.Message, repository.ErrNoSession.Error())
}

func TestBookState_Sync(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user, err := f.provider.RegisterWithEmail(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)
	f.remote.PutBookDocument(remoteBook(user.UID, "Remote Book"))

	s := NewBookState(ctx, f.books, zap.NewNop())
	defer s.Close()

	s.Sync()
	snap := s.Snapshot()
	require.Equal(t, PhaseSuccess, snap.Status.Phase)
	require.NotNil(t, snap.LastSync)
	assert.Equal(t, 1, snap.LastSync.Inserted)

	require.Eventually(t, func() bool { return len(s.Snapshot().AllBooks) == 1 }, eventually, tick)
}

func TestBookState_CloseStopsMirrors(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewBookState(ctx, f.books, zap.NewNop())

	cancel()
	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(eventually):
		t.Fatal("Close did not return")
	}
}

func TestUserState_LoginFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, repository.SeedSampleData(ctx, f.books, f.users, zap.NewNop()))

	s := NewUserState(ctx, f.users, zap.NewNop())
	defer s.Close()

	s.Login("test@example.com", "wrong")
	snap := s.Snapshot()
	assert.False(t, snap.IsLoggedIn)
	assert.Equal(t, "Invalid email or password", snap.LoginError)

	s.ClearLoginError()
	assert.Empty(t, s.Snapshot().LoginError)

	s.Login("test@example.com", "password")
	snap = s.Snapshot()
	require.True(t, snap.IsLoggedIn)
	assert.Equal(t, "test@example.com", snap.CurrentUser.Email)
	assert.NotNil(t, snap.CurrentUser.LastLogin)

	s.Logout()
	assert.False(t, s.Snapshot().IsLoggedIn)
	assert.Nil(t, s.Snapshot().CurrentUser)
}

func TestUserState_SignupProfileDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewUserState(ctx, f.users, zap.NewNop())
	defer s.Close()

	s.Signup(models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, "secret1")
	snap := s.Snapshot()
	require.True(t, snap.IsLoggedIn)
	assert.True(t, snap.CurrentUser.IsActive)

	s.Signup(models.User{Email: "ADA@example.com"}, "other12")
	assert.Equal(t, "Email already registered", s.Snapshot().SignupError)
	s.ClearSignupError()

	profile := *s.Snapshot().CurrentUser
	profile.PhoneNumber = models.StringPtr("555-0100")
	s.UpdateProfile(profile)
	assert.Equal(t, "555-0100", models.StringValue(s.Snapshot().CurrentUser.PhoneNumber))

	s.DeleteAccount()
	snap = s.Snapshot()
	assert.False(t, snap.IsLoggedIn)
	assert.Equal(t, PhaseSuccess, snap.Status.Phase)

	exists, err := f.users.EmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	s.DeleteAccount()
	assert.True(t, s.Snapshot().Status.IsError())
}

func TestSignUpState_Validation(t *testing.T) {
	f := newFixture()
	s := NewSignUpState(context.Background(), f.provider, f.users, zap.NewNop())
	defer s.Close()

	cases := []struct {
		email, password, confirm, want string
	}{
		{"", "secret1", "secret1", "Email and password cannot be empty."},
		{"ada@example.com", "   ", "", "Email and password cannot be empty."},
		{"not-an-email", "secret1", "secret1", "Please enter a valid email address."},
		{"ada@example.com", "abc", "abc", "Password must be at least 6 characters long."},
		{"ada@example.com", "secret1", "secret2", "Passwords do not match."},
	}
	for _, tc := range cases {
		s.EmailChanged(tc.email)
		s.PasswordChanged(tc.password)
		s.ConfirmPasswordChanged(tc.confirm)
		s.Submit()
		assert.Equal(t, tc.want, s.Snapshot().Error, "input %q/%q/%q", tc.email, tc.password, tc.confirm)
	}

	s.EmailChanged("x")
	assert.Empty(t, s.Snapshot().Error, "editing clears the error")
}

func TestSignUpState_RegistersAndSyncsProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewSignUpState(ctx, f.provider, f.users, zap.NewNop())
	defer s.Close()

	s.FirstNameChanged("Ada")
	s.LastNameChanged("Lovelace")
	s.EmailChanged(" ada@example.com ")
	s.PasswordChanged("secret1")
	s.ConfirmPasswordChanged("secret1")
	s.Submit()

	form := s.Snapshot()
	require.True(t, form.IsSuccess, form.Error)
	require.NotNil(t, form.User)
	require.NotNil(t, form.Profile)
	assert.Equal(t, "Lovelace", form.Profile.LastName)
	assert.Equal(t, form.User.UID, form.Profile.ProviderID)

	doc, err := f.remote.GetUser(ctx, form.User.UID)
	require.NoError(t, err)
	assert.NotNil(t, doc)

	s.Reset()
	s.EmailChanged("ada@example.com")
	s.PasswordChanged("secret1")
	s.ConfirmPasswordChanged("secret1")
	s.Submit()
	assert.Equal(t, "An account already exists with this email.", s.Snapshot().Error)
}

func TestLoginState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.provider.RegisterWithEmail(ctx, "ada@example.com", "secret1", "Ada Lovelace")
	require.NoError(t, err)
	require.NoError(t, f.provider.SignOut(ctx))

	s := NewLoginState(ctx, f.provider, f.users, zap.NewNop())
	defer s.Close()

	s.Submit()
	assert.Equal(t, "Email and password cannot be blank", s.Snapshot().Error)

	s.EmailChanged("ada@example.com")
	s.PasswordChanged("nope123")
	s.Submit()
	assert.Equal(t, "Invalid email or password", s.Snapshot().Error)
	assert.False(t, s.Snapshot().IsLoading)

	s.PasswordChanged("secret1")
	s.Submit()
	form := s.Snapshot()
	require.True(t, form.IsSuccess)
	require.NotNil(t, form.Profile)
	assert.Equal(t, "Ada", form.Profile.FirstName)
	assert.NotNil(t, f.provider.CurrentUser())

	s.SignInWithGoogle("token")
	assert.Equal(t, PhaseError, s.Snapshot().Status.Phase)

	s.SignOut()
	assert.Nil(t, f.provider.CurrentUser())
	assert.Equal(t, LoginForm{Status: Idle()}, s.Snapshot())
}

func TestMapState(t *testing.T) {
	f := newFixture()
	s := NewMapState(context.Background(), f.remote, zap.NewNop())
	defer s.Close()

	s.AddBookstore(models.BookstoreLocation{Name: "Powell's", Latitude: 45.52, Longitude: -122.68})
	s.Load()
	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	require.Len(t, snap.Bookstores, 1)
	assert.Equal(t, "Powell's", snap.Bookstores[0].Name)

	f.remote.FailReads(errors.New("offline"))
	s.Load()
	snap = s.Snapshot()
	assert.True(t, snap.Status.IsError())
	assert.Len(t, snap.Bookstores, 1, "previous data is kept")

	offline := NewMapState(context.Background(), nil, zap.NewNop())
	defer offline.Close()
	offline.Load()
	assert.True(t, offline.Snapshot().Status.IsError())
}

func TestChangesSignal(t *testing.T) {
	f := newFixture()
	s := NewMapState(context.Background(), f.remote, zap.NewNop())
	defer s.Close()

	s.Load()
	select {
	case <-s.Changes():
	case <-time.After(eventually):
		t.Fatal("expected a change signal")
	}
}

func TestBookState_RejectsBlankTitleOrAuthor(t *testing.T) {
	f := newFixture()
	s := NewBookState(context.Background(), f.books, zap.NewNop())
	defer s.Close()

	f.db.FailWrites(errors.New("disk full"))
	for _, b := range []models.Book{
		{Title: "", Author: "Jane Austen"},
		{Title: "Emma", Author: ""},
		{Title: "  ", Author: "   "},
	} {
		s.AddBook(b)
		assert.Equal(t, Failed("Title and author cannot be blank."), s.Snapshot().Status, "%+v", b)

		b.ID = 1
		s.UpdateBook(b)
		assert.Equal(t, Failed("Title and author cannot be blank."), s.Snapshot().Status, "%+v", b)
	}
}

func TestBookState_BulkDeletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewBookState(ctx, f.books, zap.NewNop())
	defer s.Close()

	s.AddBook(models.Book{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction"})
	s.AddBook(models.Book{Title: "Emma", Author: "Jane Austen", Category: "Classics"})
	require.Eventually(t, func() bool { return len(s.Snapshot().AllBooks) == 2 }, eventually, tick)

	s.DeleteCategory("Science Fiction")
	assert.Equal(t, PhaseSuccess, s.Snapshot().Status.Phase)
	require.Eventually(t, func() bool {
		all := s.Snapshot().AllBooks
		return len(all) == 1 && all[0].Title == "Emma"
	}, eventually, tick)

	s.DeleteAll()
	assert.Equal(t, PhaseSuccess, s.Snapshot().Status.Phase)
	require.Eventually(t, func() bool { return len(s.Snapshot().AllBooks) == 0 }, eventually, tick)

	f.db.FailWrites(errors.New("disk full"))
	s.DeleteAll()
	assert.Contains(t, s.Snapshot().Status.Message, "disk full")
}
