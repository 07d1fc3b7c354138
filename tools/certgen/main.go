// Package main generates a development Certificate Authority and a server
// certificate signed by it, writing them under the "certs" directory.
//
// Start the backend with -tls-cert certs/server.crt -tls-key certs/server.key
// and the client with -ca certs/ca.crt.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/ProjectMarket/internal/certgen"
)

const (
	caValidity     = 10 * 365 * 24 * time.Hour
	serverValidity = 365 * 24 * time.Hour
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ","), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run writes ca.crt, ca.key, server.crt and server.key into dir. An existing
// CA in dir is reused so that clients already trusting it keep working.
func run(dir string, hosts []string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	ca, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if err != nil {
		var certPEM, keyPEM []byte
		ca, certPEM, keyPEM, err = certgen.GenerateCA("ProjectMarket Dev CA", caValidity)
		if err != nil {
			return err
		}
		if err := certgen.WriteFiles(caCertPath, caKeyPath, certPEM, keyPEM); err != nil {
			return err
		}
		fmt.Fprintf(out, "Generated CA in %s\n", caCertPath)
	}

	var names []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	certPEM, keyPEM, err := ca.GenerateServerCertificate(names, serverValidity)
	if err != nil {
		return err
	}
	if err := certgen.WriteFiles(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM); err != nil {
		return err
	}
	fmt.Fprintf(out, "Generated server certificate for %s in %s\n", strings.Join(names, ", "), dir)
	return nil
}
