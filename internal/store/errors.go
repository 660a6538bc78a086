package store

// storeError is a plain error carrying the exact SimpleError text the
// mailbox should reply with.
type storeError struct{ msg string }

func (e *storeError) Error() string { return e.msg }

func newStoreError(msg string) error { return &storeError{msg: msg} }

var (
	// ErrWrongType is returned when a command targets a key already
	// holding the other store's value kind.
	ErrWrongType = newStoreError("WRONGTYPE Operation against a key holding the wrong kind of value")

	// ErrUnsupported is the mailbox's reply for commands the core
	// accepts in its grammar but does not execute (BLPOP).
	ErrUnsupported = newStoreError("ERR unsupported")
)
