package transport

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// ErrNoCertificates is returned when a trust store holds no usable certificate
var ErrNoCertificates = errors.New("trust store contains no certificates")

// LoadTrustStore reads a certificate pool from path. Files ending in .p12 or
// .pfx, or any file opened with a password, are decoded as PKCS#12; everything
// else is read as PEM.
func LoadTrustStore(path, password string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust store: %w", err)
	}

	if isPKCS12(path, password) {
		return poolFromPKCS12(data, password)
	}
	return poolFromPEM(data)
}

func isPKCS12(path, password string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return true
	case ".pem", ".crt", ".cer":
		return false
	}
	return password != ""
}

func poolFromPEM(data []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, ErrNoCertificates
	}
	return pool, nil
}

func poolFromPKCS12(data []byte, password string) (*x509.CertPool, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 trust store: %w", err)
	}

	pool := x509.NewCertPool()
	count := 0
	for _, block := range blocks {
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		pool.AddCert(cert)
		count++
	}
	if count == 0 {
		return nil, ErrNoCertificates
	}
	return pool, nil
}
