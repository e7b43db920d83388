package common

import "golang.org/x/xerrors"

var (
	// ErrStoreUnavailable is wrapped into the error returned when the
	// persistent realization cannot open its underlying key/value store.
	// Read and write failures on an open store panic instead.
	ErrStoreUnavailable = xerrors.New("trie: underlying store unavailable")
)
