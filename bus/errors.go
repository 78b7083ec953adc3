package bus

import (
	"errors"
	"fmt"

	"github.com/progrium/kubix-go/frame"
)

var (
	ErrNotFound            = errors.New("kubix: channel not found")
	ErrAlreadyInUse        = errors.New("kubix: channel already in use")
	ErrTransportFailure    = errors.New("kubix: transport failure")
	ErrChannelClosed       = errors.New("kubix: channel closed")
	ErrNotOpen             = errors.New("kubix: channel not open")
	ErrHandshakeInProgress = errors.New("kubix: handshake in progress")
	ErrNotOperational      = errors.New("kubix: bus not operational")
	ErrReservedKey         = errors.New("kubix: key reserved for the control channel")
	ErrBusClosed           = errors.New("kubix: bus closed")

	ErrImpossibleState = frame.ErrImpossibleState
	ErrImpossibleOp    = frame.ErrImpossibleOp
	ErrPayloadOverflow = frame.ErrPayloadOverflow
)

// HandshakeError is returned when the peer refuses to open a channel. The
// channel stays in the handshaking state: Open again to retry or Abandon it.
type HandshakeError struct {
	Key     frame.Key
	Result  frame.Result
	Payload []byte
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("kubix: channel %s refused by peer: %s", e.Key, e.Result)
}

func (e *HandshakeError) Unwrap() error {
	return e.Result.Err()
}
