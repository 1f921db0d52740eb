package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// Generates an ECDSA P-256 signing key for JWT_SECRET. Run once per
// environment; production keys should never be the generated dev fallback.
func main() {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal private key: %v\n", err)
		os.Exit(1)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	fmt.Println("Generated ECDSA P-256 key pair for JWT signing.")
	fmt.Println("\nAdd this to your .env file as JWT_SECRET (single line, \\n for newlines):")
	fmt.Println("----------------------------------------")
	fmt.Printf("JWT_SECRET=%s\n", strings.ReplaceAll(string(privateKeyPEM), "\n", "\\n"))

	if err := os.WriteFile("jwt-private-key.pem", privateKeyPEM, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write private key file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nPrivate key also saved to: jwt-private-key.pem")
	fmt.Println("To use the file-based key, set in .env:")
	fmt.Println("JWT_SECRET=$(cat jwt-private-key.pem)")
}
