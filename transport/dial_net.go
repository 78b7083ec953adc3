package transport

import (
	"net"
)

func dialNet(proto, addr string) (*Stream, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return NewStream(conn), nil
}

func DialTCP(addr string) (*Stream, error) {
	return dialNet("tcp", addr)
}

func DialUnix(addr string) (*Stream, error) {
	return dialNet("unix", addr)
}
