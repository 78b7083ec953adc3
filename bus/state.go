package bus

import (
	"fmt"

	"github.com/progrium/kubix-go/frame"
)

// State is the session state of a channel.
type State int32

const (
	// StateInit is a channel that exists but has not started a handshake.
	StateInit State = iota
	// StateHandshaking is a channel whose open request awaits confirmation.
	StateHandshaking
	// StateOpen permits data in both directions.
	StateOpen
	// StateDestroyed is terminal. The node is discarded on its next access.
	StateDestroyed
)

var stateNames = [...]string{
	StateInit:        "init",
	StateHandshaking: "handshaking",
	StateOpen:        "open",
	StateDestroyed:   "destroyed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Role is the side of the bus a node lives on. The initiator opens
// channels; the responder accepts them.
type Role uint8

const (
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// data reports whether op carries user data toward this side.
func (r Role) data(op frame.Op) bool {
	if r == Initiator {
		return op == frame.OpMessage
	}
	return op == frame.OpRequest || op == frame.OpReport
}

// release reports whether op is the peer tearing a channel down.
func (r Role) release(op frame.Op) bool {
	if r == Initiator {
		return op == frame.OpPeerRelease
	}
	return op == frame.OpRelease
}

// releaseOp is the op this side sends to tear a channel down.
func (r Role) releaseOp() frame.Op {
	if r == Initiator {
		return frame.OpRelease
	}
	return frame.OpPeerRelease
}

// CanSend reports whether this side may originate op on an open channel.
func (r Role) CanSend(op frame.Op) bool {
	if r == Initiator {
		switch op {
		case frame.OpRequest, frame.OpReport, frame.OpRelease:
			return true
		}
		return false
	}
	switch op {
	case frame.OpMessage, frame.OpPeerRelease:
		return true
	}
	return false
}

// Outcome classifies what a frame did to a channel.
type Outcome uint8

const (
	OutcomeOpened Outcome = iota + 1
	OutcomeRejected
	OutcomeDelivered
	OutcomeReleased
	OutcomeTerminal
	OutcomeImpossibleState
	OutcomeImpossibleOp
)

var outcomeNames = [...]string{
	OutcomeOpened:          "opened",
	OutcomeRejected:        "rejected",
	OutcomeDelivered:       "delivered",
	OutcomeReleased:        "released",
	OutcomeTerminal:        "terminal",
	OutcomeImpossibleState: "impossible-state",
	OutcomeImpossibleOp:    "impossible-op",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) && outcomeNames[o] != "" {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// IsError reports whether the outcome is a protocol violation by the peer.
func (o Outcome) IsError() bool {
	return o == OutcomeImpossibleState || o == OutcomeImpossibleOp
}

// Result is the wire result reported back to the peer.
func (o Outcome) Result() frame.Result {
	switch o {
	case OutcomeImpossibleState:
		return frame.ResultImpossibleState
	case OutcomeImpossibleOp:
		return frame.ResultImpossibleOp
	}
	return frame.ResultOK
}

// Step is the result of applying one frame to a channel.
type Step struct {
	Next    State
	Outcome Outcome
	// Deliver is set when the frame's payload goes to the channel's waiter.
	Deliver bool
}

// Transition applies an incoming op and result to a channel in state s on
// the given side. It has no side effects.
func Transition(role Role, s State, op frame.Op, result frame.Result) Step {
	switch s {
	case StateInit:
		return Step{Next: s, Outcome: OutcomeImpossibleState}

	case StateHandshaking:
		if op != frame.OpOpen {
			return Step{Next: s, Outcome: OutcomeImpossibleOp}
		}
		if result.Failed() {
			return Step{Next: s, Outcome: OutcomeRejected, Deliver: true}
		}
		return Step{Next: StateOpen, Outcome: OutcomeOpened, Deliver: true}

	case StateOpen:
		switch {
		case role.data(op):
			return Step{Next: s, Outcome: OutcomeDelivered, Deliver: true}
		case role.release(op):
			return Step{Next: StateDestroyed, Outcome: OutcomeReleased}
		}
		return Step{Next: s, Outcome: OutcomeImpossibleOp}

	case StateDestroyed:
		return Step{Next: s, Outcome: OutcomeTerminal}
	}
	return Step{Next: s, Outcome: OutcomeImpossibleState}
}
