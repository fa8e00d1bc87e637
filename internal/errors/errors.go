// Package errors declares the sentinel errors surfaced across FluxDB's
// engine and wire protocol: plain errors.New sentinels compared with
// errors.Is at the call site. ErrNoDatabase, ErrAuthRequired,
// ErrWrongPassword, ErrInvalidArgs, ErrDisabled, ErrProtocol,
// ErrDBExists and ErrNotOrderable are declared for those cases but no
// code in this module returns them: the query processor writes the
// matching wire tokens directly.
package errors

import "errors"

var (
	// ErrNotFound is returned by GET/UPDATE/DELETE on an absent id.
	ErrNotFound = errors.New("document not found")

	// ErrNoDatabase names a data command run before USE (wire token
	// NO_DATABASE_SELECTED).
	ErrNoDatabase = errors.New("no database selected")

	// ErrAuthRequired names a command other than AUTH/HELP run before
	// authentication on a password-protected server (wire token
	// AUTH_REQUIRED).
	ErrAuthRequired = errors.New("authentication required")

	// ErrWrongPassword names AUTH with a mismatched password (wire token
	// WRONG_PASSWORD).
	ErrWrongPassword = errors.New("wrong password")

	// ErrInvalidArgs names malformed command arguments (bad CONFIG value,
	// bad GET range, non-numeric id, ...).
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrDisabled names SUBSCRIBE/PUBLISH while pub/sub is off (wire token
	// PUBSUB_DISABLED).
	ErrDisabled = errors.New("pub/sub is disabled")

	// ErrProtocol names malformed request lines and invalid JSON payloads.
	ErrProtocol = errors.New("protocol error")

	// ErrDBExists names a database that already exists in the registry.
	ErrDBExists = errors.New("database already exists")

	// ErrDefaultProtected is returned when DROP DATABASE targets "default".
	ErrDefaultProtected = errors.New("the default database cannot be dropped")

	// ErrTypeMismatch is returned by the query predicate's relational
	// comparison when the two sides are of different comparable kinds;
	// predicate evaluation treats it as "does not match" rather than
	// propagating it. Value accessors called against the wrong tag return
	// value.ErrTypeMismatch, a separate sentinel.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrCorruptWAL marks a WAL record that failed to decode cleanly.
	ErrCorruptWAL = errors.New("corrupt WAL record")

	// ErrCollectionClosed is returned by any Collection method invoked
	// after close() has completed.
	ErrCollectionClosed = errors.New("collection is closed")

	// ErrArrayNotPersistable is returned when a document intended for
	// persistence contains an Array value anywhere in its tree: the wire
	// codec has no Array frame.
	ErrArrayNotPersistable = errors.New("documents containing arrays cannot be persisted")

	// ErrNotOrderable names a sorted-index bound that is an Object or
	// Array value. index.Manager.SearchSorted answers such a bound with an
	// empty result instead of this error.
	ErrNotOrderable = errors.New("value is not orderable")
)
