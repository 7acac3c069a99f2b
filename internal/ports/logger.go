package ports

import "github.com/bft-labs/udpship/pkg/log"

// Logger is the structured logging port; see pkg/log.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for adapters that only import ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Duration = log.Duration
	Stringer = log.Stringer
	Err      = log.Err
)
