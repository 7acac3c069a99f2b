package udpship

import "github.com/bft-labs/udpship/internal/domain"

// Errors returned by the transport; check them with errors.Is.
var (
	ErrInvalidEndpoint   = domain.ErrInvalidEndpoint
	ErrInvalidConfig     = domain.ErrInvalidConfig
	ErrClosed            = domain.ErrClosed
	ErrSend              = domain.ErrSend
	ErrEncode            = domain.ErrEncode
	ErrInvalidTransition = domain.ErrInvalidTransition
)
