package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVerifier struct {
	claims map[string]GoogleClaims
}

func (f fakeVerifier) Verify(idToken string) (*GoogleClaims, error) {
	c, ok := f.claims[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

func newTestService(verifier TokenVerifier) (*Service, *MemoryAccounts) {
	accounts := NewMemoryAccounts()
	return NewService(accounts, verifier, []byte("test-secret"), zap.NewNop()), accounts
}

func TestService_RegisterAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)

	user, err := svc.RegisterWithEmail(ctx, " Ada@Example.com ", "secret1", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, user.UID)
	assert.NotEmpty(t, user.Token)
	assert.Equal(t, user.UID, svc.CurrentUser().UID)

	require.NoError(t, svc.SignOut(ctx))
	assert.Nil(t, svc.CurrentUser())

	again, err := svc.SignInWithEmail(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.UID, again.UID)

	_, err = svc.SignInWithEmail(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignInWithEmail(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RegisterRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)

	_, err := svc.RegisterWithEmail(ctx, "ada@example.com", "short", "")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.RegisterWithEmail(ctx, "ada@example.com", "secret1", "")
	require.NoError(t, err)

	_, err = svc.RegisterWithEmail(ctx, "ADA@example.com", "secret2", "")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestService_Restore(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(nil)

	user, err := svc.RegisterWithEmail(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))

	restored, err := svc.Restore(ctx, user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.UID, restored.UID)
	assert.Equal(t, "Ada", restored.DisplayName)
	assert.NotNil(t, svc.CurrentUser())

	_, err = svc.Restore(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(accounts, nil, []byte("different-secret"), zap.NewNop())
	_, err = other.Restore(ctx, user.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, accounts.DeleteAccount(ctx, user.UID))
	_, err = svc.Restore(ctx, user.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_SignInWithGoogle(t *testing.T) {
	ctx := context.Background()
	verifier := fakeVerifier{claims: map[string]GoogleClaims{
		"tok-new":  {Subject: "sub-1", Email: "grace@example.com", Name: "Grace Hopper"},
		"tok-link": {Subject: "sub-2", Email: "ada@example.com", Name: "Ada"},
	}}
	svc, accounts := newTestService(verifier)

	user, err := svc.SignInWithGoogle(ctx, "tok-new")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "Grace Hopper", user.DisplayName)

	again, err := svc.SignInWithGoogle(ctx, "tok-new")
	require.NoError(t, err)
	assert.Equal(t, user.UID, again.UID)

	registered, err := svc.RegisterWithEmail(ctx, "ada@example.com", "secret1", "")
	require.NoError(t, err)
	linked, err := svc.SignInWithGoogle(ctx, "tok-link")
	require.NoError(t, err)
	assert.Equal(t, registered.UID, linked.UID)

	account, err := accounts.AccountByGoogleID(ctx, "sub-2")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, registered.UID, account.UID)

	_, err = svc.SignInWithGoogle(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_GoogleWithoutVerifier(t *testing.T) {
	svc, _ := newTestService(nil)
	_, err := svc.SignInWithGoogle(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(nil)

	assert.ErrorIs(t, svc.DeleteAccount(ctx), ErrNotSignedIn)

	user, err := svc.RegisterWithEmail(ctx, "ada@example.com", "secret1", "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx))
	assert.Nil(t, svc.CurrentUser())

	account, err := accounts.AccountByUID(ctx, user.UID)
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Invalid email or password", Message(ErrInvalidCredentials))
	assert.Equal(t, "An account already exists with this email.", Message(ErrEmailInUse))
	assert.Equal(t, "Password must be at least 6 characters long.", Message(ErrWeakPassword))
	assert.Equal(t, "Authentication failed. Please try again.", Message(errors.New("network down")))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
