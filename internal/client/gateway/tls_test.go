package gateway

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ProjectMarket/internal/certgen"
)

// newTLSServer serves h over HTTPS with a certificate from a fresh dev CA and
// returns the path of the CA certificate.
func newTLSServer(t *testing.T, h http.Handler) (*httptest.Server, string) {
	t.Helper()
	ca, caPEM, _, err := certgen.GenerateCA("Test CA", time.Hour)
	require.NoError(t, err)
	certPEM, keyPEM, err := ca.GenerateServerCertificate([]string{"127.0.0.1"}, time.Hour)
	require.NoError(t, err)
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(h)
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	caFile := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(caFile, caPEM, 0o600))
	return srv, caFile
}

func TestNewHTTPClient_TrustsGivenCA(t *testing.T) {
	srv, caFile := newTLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[]}`)
	}))

	hc, err := NewHTTPClient(caFile, 5*time.Second)
	require.NoError(t, err)
	c := NewClient(srv.URL + "/api").WithHTTPClient(hc).WithCredentials(&fakeCreds{token: "T"})

	results, err := c.SearchProjects(context.Background(), "robot")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNewHTTPClient_RejectsUnknownCA(t *testing.T) {
	srv, _ := newTLSServer(t, http.NotFoundHandler())
	_, otherCA := newTLSServer(t, http.NotFoundHandler())

	hc, err := NewHTTPClient(otherCA, 5*time.Second)
	require.NoError(t, err)
	_, err = NewClient(srv.URL+"/api").WithHTTPClient(hc).WithCredentials(&fakeCreds{token: "T"}).SearchProjects(context.Background(), "robot")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestNewHTTPClient_BadCAFile(t *testing.T) {
	_, err := NewHTTPClient(filepath.Join(t.TempDir(), "missing.pem"), time.Second)
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a cert"), 0o600))
	_, err = NewHTTPClient(junk, time.Second)
	assert.Error(t, err)
}
