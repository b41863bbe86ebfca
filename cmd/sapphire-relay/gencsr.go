package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sapphiretls "github.com/sapphire-relay/encrypting-proxy/pkg/tls"
)

var genCSRFlags struct {
	tlsKeyPath string
	subject    string
}

var genCSRCmd = &cobra.Command{
	Use:   "gen-csr",
	Short: "Generate a certificate signing request for the relay's TLS key",
	Example: `  sapphire-relay gen-csr --tls-key-path relay.key \
      --subject "C=US,ST=California,L=San Francisco,O=Oasis Labs,CN=sapphire-relay.example.com"`,
	RunE: runGenCSR,
}

func init() {
	rootCmd.AddCommand(genCSRCmd)

	f := genCSRCmd.Flags()
	f.StringVarP(&genCSRFlags.tlsKeyPath, "tls-key-path", "k", "", "path to the SEC1 PEM-encoded P-256 private key used to sign the CSR (required)")
	f.StringVar(&genCSRFlags.subject, "subject", "", "RFC 4514 RDNSequence for the CSR subject, e.g. C=US,ST=California,O=Oasis Labs,CN=sapphire-relay.example.com (required)")
	genCSRCmd.MarkFlagRequired("tls-key-path")
	genCSRCmd.MarkFlagRequired("subject")
}

func runGenCSR(cmd *cobra.Command, args []string) error {
	key, err := sapphiretls.LoadSECKeyFromFile(genCSRFlags.tlsKeyPath)
	if err != nil {
		return err
	}
	csr, err := sapphiretls.GenerateCSR(key, genCSRFlags.subject)
	if err != nil {
		return err
	}
	fmt.Print(csr)
	return nil
}
