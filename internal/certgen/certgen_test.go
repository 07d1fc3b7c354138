package certgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateCA(t *testing.T) {
	ca, certPEM, keyPEM, err := GenerateCA("Test CA", 24*time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	if !ca.Cert.IsCA || !ca.Cert.BasicConstraintsValid {
		t.Error("CA certificate should have IsCA and BasicConstraintsValid")
	}
	if ca.Cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Error("CA certificate should be able to sign certificates")
	}
	if ca.Cert.Subject.CommonName != "Test CA" {
		t.Errorf("CommonName = %q; want %q", ca.Cert.Subject.CommonName, "Test CA")
	}
	if _, ok := ca.Key.(*ecdsa.PrivateKey); !ok {
		t.Errorf("Key type = %T; want *ecdsa.PrivateKey", ca.Key)
	}

	loaded, err := LoadCACredentials(writeTemp(t, "ca.crt", certPEM), writeTemp(t, "ca.key", keyPEM))
	if err != nil {
		t.Fatalf("LoadCACredentials: %v", err)
	}
	if !loaded.Cert.Equal(ca.Cert) {
		t.Error("loaded CA certificate differs from generated one")
	}
}

func TestLoadCACredentials_KeyFormats(t *testing.T) {
	ca, certPEM, _, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	ecKey := ca.Key.(*ecdsa.PrivateKey)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(ecKey)
	if err != nil {
		t.Fatal(err)
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		block   *pem.Block
		wantErr string
	}{
		{"pkcs8", &pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}, ""},
		{"rsa", &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)}, ""},
		{"unsupported", &pem.Block{Type: "DSA PRIVATE KEY", Bytes: []byte{1}}, "unsupported key type"},
		{"corrupt ec", &pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1, 2, 3}}, "parse ca key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyPath := writeTemp(t, "ca.key", pem.EncodeToMemory(tt.block))
			_, err := LoadCACredentials(writeTemp(t, "ca.crt", certPEM), keyPath)
			if tt.wantErr == "" && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
				t.Errorf("error = %v; want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCACredentials_Errors(t *testing.T) {
	_, certPEM, keyPEM, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	certPath := writeTemp(t, "ca.crt", certPEM)
	keyPath := writeTemp(t, "ca.key", keyPEM)
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name     string
		certPath string
		keyPath  string
		wantErr  string
	}{
		{"missing cert", missing, keyPath, "read ca cert"},
		{"missing key", certPath, missing, "read ca key"},
		{"bad cert pem", writeTemp(t, "bad.crt", []byte("junk")), keyPath, "invalid CA cert PEM"},
		{"key as cert", keyPath, keyPath, "invalid CA cert PEM"},
		{"bad key pem", certPath, writeTemp(t, "bad.key", []byte("junk")), "invalid CA key PEM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCACredentials(tt.certPath, tt.keyPath)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v; want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateServerCertificate(t *testing.T) {
	ca, _, _, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	certPEM, keyPEM, err := ca.GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateServerCertificate: %v", err)
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("certificate and key do not match: %v", err)
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	if cert.Subject.CommonName != "localhost" {
		t.Errorf("CommonName = %q; want localhost", cert.Subject.CommonName)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v; want [localhost]", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 1 || !cert.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("IPAddresses = %v; want [127.0.0.1]", cert.IPAddresses)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca.Cert)
	if _, err := cert.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: roots}); err != nil {
		t.Errorf("certificate does not verify against the CA: %v", err)
	}
}

func TestGenerateServerCertificate_NoHosts(t *testing.T) {
	ca, _, _, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	if _, _, err := ca.GenerateServerCertificate(nil, time.Hour); err == nil {
		t.Error("expected error for empty host list")
	}
}

func TestGenerateServerCertificate_BadCAKey(t *testing.T) {
	ca, _, _, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	ca.Key = other.Public()
	if _, _, err := ca.GenerateServerCertificate([]string{"localhost"}, time.Hour); err == nil {
		t.Error("expected error when the CA key cannot sign")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	if err := WriteFiles(certPath, keyPath, []byte("cert"), []byte("key")); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %v; want 0600", info.Mode().Perm())
	}
	if err := WriteFiles(filepath.Join(dir, "missing", "a.crt"), keyPath, nil, nil); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
