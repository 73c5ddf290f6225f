package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/signer"
)

// NewKeysCmd creates the keys command
func NewKeysCmd() *cobra.Command {
	var keyringPath string
	var keyID string
	var fallbackKeyID string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the signing identities in a keyring",
		Long: `Lists every private signing key the keyring holds, in the
deterministic order the build command considers them. The identity the
given selectors would pick is marked with an asterisk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := signer.LoadKeyring(keyringPath)
			if err != nil {
				return &models.RepoError{Kind: models.ErrSigningUnavailable, Err: err}
			}

			candidates := signer.Candidates(entities)
			if len(candidates) == 0 {
				return &models.RepoError{
					Kind: models.ErrSigningIdentity,
					Err:  fmt.Errorf("keyring contains no private signing keys"),
				}
			}

			selected, selErr := signer.SelectIdentity(entities, keyID, fallbackKeyID)

			w := cmd.OutOrStdout()
			for _, entity := range candidates {
				ident := signer.IdentityOf(entity)
				marker := " "
				if selErr == nil && entity == selected {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s  %s  %s\n", marker, ident.KeyID, ident.Fingerprint, ident.Name)
			}

			if selErr != nil {
				return &models.RepoError{Kind: models.ErrSigningIdentity, Err: selErr}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyringPath, "keyring", "k", "", "Path to the armored or binary private keyring")
	cmd.Flags().StringVar(&keyID, "key-id", "", "Signing key selector")
	cmd.Flags().StringVar(&fallbackKeyID, "fallback-key-id", "", "Selector tried when --key-id is not given")

	return cmd
}
