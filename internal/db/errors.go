package db

import "errors"

var (
	// ErrKeyNotFound is returned by Get for a missing key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound maps the "Unknown index name" server reply.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists maps the "Index already exists" server reply.
	ErrIndexExists = errors.New("db: index already exists")
	// ErrSearchModuleMissing means the server has no FT.* commands
	// (Redis before 8 without Stack, Valkey without valkey-search).
	ErrSearchModuleMissing = errors.New("db: search module not loaded")
)

// Command names used as Error.Op.
const (
	OpPing = "PING"

	OpGet    = "GET"
	OpSet    = "SET"
	OpDel    = "DEL"
	OpExists = "EXISTS"
	OpScan   = "SCAN"

	OpHSet    = "HSET"
	OpHGetAll = "HGETALL"
	OpExec    = "EXEC"

	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpListIndexes = "FT._LIST"
	OpSearch      = "FT.SEARCH"
)

// Error tags a driver failure with the command that produced it, for
// example "FT.SEARCH: context deadline exceeded".
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
