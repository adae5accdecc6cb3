package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const signingKeyPerm = 0o600

var keygenOutFile string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a report signing key",
	Long: `Generate a new ed25519 signing key and write its base64-encoded
seed to a file. Point report.signing.key_file at the file to have sweep
reports signed with it. The public key is printed for distribution to
report consumers.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVarP(&keygenOutFile, "out", "o",
		"netsweep-signing.key", "output file for the key seed")
}

func runKeygen(_ *cobra.Command, _ []string) error {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to generate key seed: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(seed) + "\n"
	if err := os.WriteFile(keygenOutFile, []byte(encoded), signingKeyPerm); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	fmt.Printf("Signing key written to %s\n", keygenOutFile)
	fmt.Printf("Public key: %s\n", base64.StdEncoding.EncodeToString(pub))
	return nil
}
