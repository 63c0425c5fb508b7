package tool

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

const certValidityYears = 10

// DefaultHostnames lists the names the board answers to on the local network.
func DefaultHostnames() []string {
	hostnames := []string{"localhost", "127.0.0.1"}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		hostnames = append(hostnames, hostname, hostname+".local")
	}
	return hostnames
}

// GenerateTlsCertificate writes a self-signed P-256 server certificate and
// its key. An empty hostnames list falls back to DefaultHostnames.
func GenerateTlsCertificate(
	organization string,
	serverCommonName string,
	serverKeyFilename, serverCertFilename string,
	hostnames []string) error {

	if len(hostnames) == 0 {
		hostnames = DefaultHostnames()
	}

	notBefore := time.Now()
	notAfter := notBefore.AddDate(certValidityYears, 0, 0)

	serverKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}
	serverTemplate := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   serverCommonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range hostnames {
		if ip := net.ParseIP(h); ip != nil {
			serverTemplate.IPAddresses = append(serverTemplate.IPAddresses, ip)
		} else {
			serverTemplate.DNSNames = append(serverTemplate.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &serverTemplate, &serverTemplate, &serverKey.PublicKey, serverKey)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(serverKey)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	if err = writePem(serverKeyFilename, "EC PRIVATE KEY", keyBytes, 0600); err != nil {
		return err
	}
	return writePem(serverCertFilename, "CERTIFICATE", derBytes, 0644)
}

func writePem(filename, blockType string, b []byte, perm os.FileMode) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err = pem.Encode(file, &pem.Block{Type: blockType, Bytes: b}); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return file.Close()
}
