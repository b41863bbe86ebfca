package tls

import "testing"

func TestGenerateCSRRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	csr, err := GenerateCSR(key, "C=US,ST=California,O=Oasis Labs,CN=sapphire-relay.example.com")
	if err != nil {
		t.Fatalf("GenerateCSR: %v", err)
	}
	if csr == "" {
		t.Fatal("expected non-empty CSR PEM")
	}
	if got := csr[:26]; got != "-----BEGIN CERTIFICATE REQ" {
		t.Errorf("unexpected PEM header: %q", got)
	}
}

func TestGenerateCSRRequiresCommonName(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := GenerateCSR(key, "C=US,O=Oasis Labs"); err == nil {
		t.Fatal("expected error for subject missing CN")
	}
}

func TestParseRDNSequenceRejectsMalformed(t *testing.T) {
	if _, err := parseRDNSequence("not-a-valid-subject"); err == nil {
		t.Fatal("expected error for malformed RDN")
	}
}

func TestParseRDNSequenceRejectsUnknownAttribute(t *testing.T) {
	if _, err := parseRDNSequence("CN=test,XX=bogus"); err == nil {
		t.Fatal("expected error for unsupported RDN attribute")
	}
}

func TestLoadSECKeyFromFileMissingFile(t *testing.T) {
	if _, err := LoadSECKeyFromFile("/nonexistent/path/key.pem"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
