package main

import (
	"github.com/gestiopro/gestiohub.go/lib/tokens"
	"github.com/spf13/cobra"
)

var entrepriseCmd = &cobra.Command{
	Use:   "entreprise",
	Short: "Manage entreprises",
}

var createEntrepriseCmd = &cobra.Command{
	Use:   "create [nom]",
	Short: "Create an entreprise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entreprise, err := svc.CreateEntreprise(ctx(cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, entreprise)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for an entreprise",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEntreprise(); err != nil {
			return err
		}
		if _, err := svc.FindEntreprise(ctx(cmd), entrepriseID); err != nil {
			return err
		}
		expiry, _ := cmd.Flags().GetInt("expiry")
		token, err := tokens.GenerateAccessToken(svc.Config.JWTSecret, expiry, entrepriseID)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{"access_token": token})
	},
}

func init() {
	tokenCmd.Flags().Int("expiry", 7*24*3600, "lifetime of the token in seconds")
	entrepriseCmd.AddCommand(createEntrepriseCmd, tokenCmd)
	rootCmd.AddCommand(entrepriseCmd)
}
