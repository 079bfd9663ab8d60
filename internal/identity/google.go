package identity

import (
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleClaims are the identity claims carried by a verified Google ID token
type GoogleClaims struct {
	Subject string
	Email   string
	Name    string
}

// TokenVerifier validates federated ID tokens
type TokenVerifier interface {
	Verify(idToken string) (*GoogleClaims, error)
}

// GoogleVerifier checks Google ID tokens against Google's signing keys
type GoogleVerifier struct {
	ClientIDs []string
}

// Verify validates the token signature and audience, then decodes its claims
func (g GoogleVerifier) Verify(idToken string) (*GoogleClaims, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(idToken, g.ClientIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &GoogleClaims{
		Subject: claimSet.Sub,
		Email:   claimSet.Email,
		Name:    claimSet.Name,
	}, nil
}
