// Package tls loads the proxy's TLS signing key and produces certificate
// signing requests for it, mirroring the original encrypting-proxy's
// sep::tls module (load_secret_key_from, csr::generate).
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// LoadSECKeyFromFile reads a SEC1 or PKCS8 PEM-encoded P-256 private key
// from disk, the way the original's load_secret_key_from does for
// non-enclave builds.
func LoadSECKeyFromFile(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found", path)
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid private key", path)
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: private key is not P-256 ECDSA", path)
	}
	return ecKey, nil
}

// GenerateKey creates a new P-256 (prime256v1) signing key, suitable for
// writing to disk with openssl-compatible tooling.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// GenerateCSR builds a PEM-encoded PKCS#10 certificate signing request for
// key, with subject parsed as an RFC 4514 RDNSequence
// (e.g. "C=US,ST=California,O=Oasis Labs,CN=sapphire-relay.example.com").
func GenerateCSR(key *ecdsa.PrivateKey, subject string) (string, error) {
	name, err := parseRDNSequence(subject)
	if err != nil {
		return "", fmt.Errorf("invalid subject: %w", err)
	}

	template := &x509.CertificateRequest{
		Subject:            name,
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return "", fmt.Errorf("failed to create CSR: %w", err)
	}

	block := &pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// parseRDNSequence parses a small, common subset of RFC 4514: comma-separated
// attribute=value pairs with no escaping or multi-valued RDNs. This covers
// the subjects the original CLI's --subject flag documents, without pulling
// in a full LDAP DN parser for a CLI convenience path.
func parseRDNSequence(s string) (pkix.Name, error) {
	var name pkix.Name
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return pkix.Name{}, fmt.Errorf("malformed RDN %q", part)
		}
		key, value := strings.ToUpper(strings.TrimSpace(kv[0])), strings.TrimSpace(kv[1])
		switch key {
		case "C":
			name.Country = append(name.Country, value)
		case "ST":
			name.Province = append(name.Province, value)
		case "L":
			name.Locality = append(name.Locality, value)
		case "O":
			name.Organization = append(name.Organization, value)
		case "OU":
			name.OrganizationalUnit = append(name.OrganizationalUnit, value)
		case "CN":
			name.CommonName = value
		default:
			return pkix.Name{}, fmt.Errorf("unsupported RDN attribute %q", key)
		}
	}
	if name.CommonName == "" {
		return pkix.Name{}, fmt.Errorf("subject must include CN")
	}
	return name, nil
}
