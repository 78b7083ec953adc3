package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one end of a channel: the owning process or thread and a
// caller-chosen resource handle.
type Key struct {
	Owner    int32
	Resource int32
}

// ControlKey is reserved for the channel between the two bus halves.
var ControlKey = Key{Owner: 0, Resource: -10}

// Packed combines both halves into a single map key with the resource in
// the high 32 bits.
func (k Key) Packed() uint64 {
	return uint64(uint32(k.Resource))<<32 | uint64(uint32(k.Owner))
}

// KeyFrom reverses Packed.
func KeyFrom(v uint64) Key {
	return Key{
		Owner:    int32(uint32(v)),
		Resource: int32(uint32(v >> 32)),
	}
}

func (k Key) IsControl() bool {
	return k == ControlKey
}

func (k Key) String() string {
	return fmt.Sprintf("%d.%d", k.Owner, k.Resource)
}

// ParseKey parses the "owner.resource" form produced by String.
func ParseKey(s string) (Key, error) {
	owner, resource, ok := strings.Cut(s, ".")
	if !ok {
		return Key{}, fmt.Errorf("kubix: key %q: want owner.resource", s)
	}
	o, err := strconv.ParseInt(owner, 10, 32)
	if err != nil {
		return Key{}, fmt.Errorf("kubix: key %q: %w", s, err)
	}
	r, err := strconv.ParseInt(resource, 10, 32)
	if err != nil {
		return Key{}, fmt.Errorf("kubix: key %q: %w", s, err)
	}
	return Key{Owner: int32(o), Resource: int32(r)}, nil
}
