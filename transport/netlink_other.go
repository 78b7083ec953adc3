//go:build !linux

package transport

// DialNetlink is only available on linux.
func DialNetlink(group uint32) (Transport, error) {
	return nil, ErrUnsupported
}

// ListenNetlink is only available on linux.
func ListenNetlink(group uint32) (Listener, error) {
	return nil, ErrUnsupported
}
