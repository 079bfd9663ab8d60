// Package repository combines the local store, the remote mirror and the
// identity session into the operations the rest of the app calls. The
// local store is the source of truth; the remote store is written after it
// and never rolls it back.
package repository

import (
	"errors"

	"bookapp/internal/identity"
)

var (
	// ErrRemoteMirror wraps a remote write failure that happened after the
	// local write succeeded
	ErrRemoteMirror = errors.New("remote mirror write failed")
	// ErrNoSession is returned by operations that need a signed-in user and
	// a remote store
	ErrNoSession = errors.New("no active remote session")
)

// Session reports the signed-in identity, if any
type Session interface {
	CurrentUser() *identity.User
}
