package transport

import (
	"testing"
)

func TestQUIC(t *testing.T) {
	l, err := ListenQUIC("127.0.0.1:0", nil)
	fatal(err, t)
	defer l.Close()

	accepted := make(chan Transport, 1)
	go func() {
		b, err := l.Accept()
		if err == nil {
			accepted <- b
		}
	}()

	a, err := DialQUIC(l.Addr().String())
	fatal(err, t)
	defer a.Close()
	b := <-accepted
	defer b.Close()

	exchange(t, a, b)
}
