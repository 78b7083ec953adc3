package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICProto is the ALPN protocol negotiated by QUIC transports.
const QUICProto = "kubix-quic"

var quicDialTimeout = 10 * time.Second

// quicStream is a single bidirectional stream owning its connection.
type quicStream struct {
	io.ReadWriteCloser
	closeConn func() error
}

func (s *quicStream) Close() error {
	s.ReadWriteCloser.Close()
	return s.closeConn()
}

// DialQUIC connects to addr and opens the stream frames travel on. The
// server certificate is not verified.
func DialQUIC(addr string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(context.Background(), quicDialTimeout)
	defer cancel()
	conn, err := quic.DialAddr(ctx, addr, &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{QUICProto},
	}, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, err.Error())
		return nil, err
	}
	// the peer only sees the stream once something is written on it
	if _, err := stream.Write([]byte("!")); err != nil {
		conn.CloseWithError(1, err.Error())
		return nil, err
	}
	return NewStream(&quicStream{
		ReadWriteCloser: stream,
		closeConn: func() error {
			return conn.CloseWithError(0, "")
		},
	}), nil
}

// QUICListener accepts QUIC connections, one transport per connection.
type QUICListener struct {
	addr     net.Addr
	close    func() error
	accepted chan Transport
	closer   chan bool
	errs     chan error
}

func (l *QUICListener) Accept() (Transport, error) {
	select {
	case <-l.closer:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case t := <-l.accepted:
		return t, nil
	}
}

func (l *QUICListener) Close() error {
	select {
	case <-l.closer:
	default:
		close(l.closer)
	}
	return l.close()
}

func (l *QUICListener) Addr() net.Addr {
	return l.addr
}

// ListenQUIC listens for QUIC connections on addr. A nil config uses a
// freshly generated self-signed certificate.
func ListenQUIC(addr string, config *tls.Config) (*QUICListener, error) {
	if config == nil {
		var err error
		config, err = selfSignedTLSConfig()
		if err != nil {
			return nil, err
		}
	}
	ln, err := quic.ListenAddr(addr, config, nil)
	if err != nil {
		return nil, err
	}
	l := &QUICListener{
		addr:     ln.Addr(),
		close:    ln.Close,
		accepted: make(chan Transport),
		closer:   make(chan bool),
		errs:     make(chan error, 1),
	}
	go func() {
		for {
			conn, err := ln.Accept(context.Background())
			if err != nil {
				l.errs <- err
				return
			}
			go func() {
				stream, err := conn.AcceptStream(context.Background())
				if err != nil {
					conn.CloseWithError(1, err.Error())
					return
				}
				header := make([]byte, 1)
				if _, err := io.ReadFull(stream, header); err != nil {
					conn.CloseWithError(1, err.Error())
					return
				}
				t := NewStream(&quicStream{
					ReadWriteCloser: stream,
					closeConn: func() error {
						return conn.CloseWithError(0, "")
					},
				})
				select {
				case l.accepted <- t:
				case <-l.closer:
					t.Close()
				}
			}()
		}
	}()
	return l, nil
}

func selfSignedTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("quic certificate: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{QUICProto},
	}, nil
}
