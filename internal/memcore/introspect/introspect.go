// Package introspect serves a read-only diagnostic snapshot of the memory
// substrate over HTTP/3, using quic-go the way the runtime's own netstack
// layer serves its diagnostic and metrics endpoints over QUIC.
package introspect

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/inspect"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
)

// Snapshot is the JSON-serializable payload served at "/snapshot".
type Snapshot struct {
	Regions []inspect.RegionSnapshot `json:"regions,omitempty"`
	Pools   []inspect.PoolSnapshot   `json:"pools,omitempty"`
}

// Source supplies the live objects a Server snapshots on each request.
// Callers typically close over their own region/pool registries.
type Source func() (regions []*region.Region, pools []*component.Pool)

// Server exposes a Source's state over HTTP/3 at GET /snapshot.
type Server struct {
	srv  *http3.Server
	addr string
}

// New constructs a Server bound to addr, generating an in-memory
// self-signed certificate for localhost/127.0.0.1 since this endpoint is
// meant for same-host operational tooling, not public exposure.
func New(addr string, source Source) (*Server, error) {
	tlsCfg, err := selfSignedTLS([]string{"localhost", "127.0.0.1"}, 24*time.Hour)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		regions, pools := source()

		snap := Snapshot{
			Regions: make([]inspect.RegionSnapshot, 0, len(regions)),
			Pools:   make([]inspect.PoolSnapshot, 0, len(pools)),
		}

		for _, rg := range regions {
			snap.Regions = append(snap.Regions, inspect.Region(rg))
		}

		for _, p := range pools {
			snap.Pools = append(snap.Pools, inspect.Pool(p))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	})

	return &Server{
		srv:  &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: mux},
		addr: addr,
	}, nil
}

// Start begins serving on an ephemeral UDP port if the configured addr ends
// with ":0", returning the actual bound address.
func (s *Server) Start() (string, error) {
	pc, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return "", err
	}

	go func() {
		_ = s.srv.Serve(pc)
	}()

	return pc.LocalAddr().String(), nil
}

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Close()
}

func selfSignedTLS(hosts []string, validFor time.Duration) (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{"h3"},
	}, nil
}
