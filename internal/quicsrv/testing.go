package quicsrv

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cnvs/canvas-server/internal/constants"
)

// NewStubConnection builds a Connection with no backing QUIC transport, for
// tests elsewhere that need to exercise connection bookkeeping (lifecycle
// state, cooldown/session metadata) without a real handshake.
func NewStubConnection() *Connection {
	return &Connection{
		state:      StateConnecting,
		lastActive: time.Now(),
	}
}

// WriteSelfSignedCert generates a throwaway ECDSA cert/key pair for
// localhost and writes them as PEM files under dir, returning their paths.
// Used by tests that need a real Listen/Accept handshake rather than a
// stub connection.
func WriteSelfSignedCert(dir string) (certPath, keyPath string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return "", "", err
	}

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	if err != nil {
		return "", "", err
	}
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		certOut.Close()
		return "", "", err
	}
	if err := certOut.Close(); err != nil {
		return "", "", err
	}

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return "", "", err
	}
	keyOut, err := os.Create(keyPath)
	if err != nil {
		return "", "", err
	}
	if err := pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}); err != nil {
		keyOut.Close()
		return "", "", err
	}
	if err := keyOut.Close(); err != nil {
		return "", "", err
	}

	return certPath, keyPath, nil
}

// ClientTLSConfig builds a client-side tls.Config that trusts the
// self-signed certificate at certPath, for dialing a test Listener.
func ClientTLSConfig(certPath string) (*tls.Config, error) {
	pemBytes, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(pemBytes)
	return &tls.Config{
		RootCAs:    pool,
		NextProtos: []string{constants.ALPN},
	}, nil
}
