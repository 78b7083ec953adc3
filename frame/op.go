package frame

import (
	"errors"
	"fmt"
)

// Op is the operation code carried by every frame.
type Op uint8

const (
	// OpOpen opens a channel. The answer to an open carries the same op.
	OpOpen Op = iota
	// OpRequest is initiator data that expects an answer.
	OpRequest
	// OpMessage is responder data.
	OpMessage
	// OpRelease is sent by the initiator to tear a channel down.
	OpRelease
	// OpPeerRelease is sent by the responder to tear a channel down.
	OpPeerRelease
	// OpReport is initiator data that expects no answer.
	OpReport
	OpNoAction
)

var opNames = [...]string{
	OpOpen:        "open",
	OpRequest:     "request",
	OpMessage:     "message",
	OpRelease:     "release",
	OpPeerRelease: "peer-release",
	OpReport:      "report",
	OpNoAction:    "no-action",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

func (op Op) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// Valid reports whether op is a known operation code.
func (op Op) Valid() bool {
	return op <= OpNoAction
}

// Result is the outcome code carried by every frame. Zero is success and
// failures are negative.
type Result int8

const (
	ResultOK              Result = 0
	ResultImpossibleState Result = -1
	ResultImpossibleOp    Result = -2
	// ResultRejected refuses an open because the receiving side is at capacity.
	ResultRejected Result = -3
	// ResultHandlerFailure reports that the payload handler returned an error.
	ResultHandlerFailure Result = -4
)

var (
	ErrImpossibleState = errors.New("kubix: operation impossible in current state")
	ErrImpossibleOp    = errors.New("kubix: operation not permitted")
	ErrRejected        = errors.New("kubix: rejected by peer")
	ErrHandlerFailure  = errors.New("kubix: peer handler failed")
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultImpossibleState:
		return "impossible-state"
	case ResultImpossibleOp:
		return "impossible-op"
	case ResultRejected:
		return "rejected"
	case ResultHandlerFailure:
		return "handler-failure"
	}
	return fmt.Sprintf("result(%d)", int8(r))
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Failed reports whether r is a failure code.
func (r Result) Failed() bool {
	return r < 0
}

// Err returns the error matching a failure code, or nil for success and
// non-negative application codes.
func (r Result) Err() error {
	switch {
	case r >= 0:
		return nil
	case r == ResultImpossibleState:
		return ErrImpossibleState
	case r == ResultImpossibleOp:
		return ErrImpossibleOp
	case r == ResultRejected:
		return ErrRejected
	case r == ResultHandlerFailure:
		return ErrHandlerFailure
	}
	return fmt.Errorf("kubix: peer returned %s", r)
}
