// Package command parses RESP arrays into the closed set of command
// variants the connection state machine understands.
package command

// Kind identifies which command variant a Command carries.
type Kind int

const (
	Ping Kind = iota
	Echo
	Set
	Get
	Incr
	RPush
	LPush
	LLen
	LPop
	BLPop
	LRange
	Multi
	Exec
	Discard
	Info
	ReplConf
	PSync
)

// Command is a parsed, validated command. Only the fields relevant to
// Kind are populated.
type Command struct {
	Kind Kind

	Key  string   // Set, Get, Incr, RPush, LPush, LLen, LPop, LRange
	Keys []string // BLPop

	Value  []byte   // Echo, Set
	Values [][]byte // RPush, LPush

	HasPX bool
	PXMs  int64 // Set: milliseconds until expiration

	HasCount bool
	Count    int64 // LPop

	Start, Stop int64 // LRange

	Timeout float64 // BLPop

	Section string // Info

	ReplArgs []string // REPLCONF args, verbatim

	ReplID string // PSync
	Offset int64  // PSync
}
