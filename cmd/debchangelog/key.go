package main

import (
	"github.com/spf13/cobra"

	"github.com/etnz/debchangelog/sign"
)

func newKeyCmd(a *app) *cobra.Command {
	var binary bool
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the public key matching signing_key",
		Long: `Print the public key of the configured signing_key, to hand to the
readers of changelogs printed with "show --sign". They check them with
"show --verify".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.signingKey()
			if err != nil {
				return err
			}
			pub, err := sign.PublicKey(key, !binary)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(pub)
			return err
		},
	}
	cmd.Flags().BoolVar(&binary, "binary", false, "print the key in binary form instead of ASCII armor")
	return cmd
}
