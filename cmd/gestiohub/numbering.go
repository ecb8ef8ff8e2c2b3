package main

import (
	"context"
	"strings"

	"github.com/gestiopro/gestiohub.go/common"
	"github.com/spf13/cobra"
)

var numberCmd = &cobra.Command{
	Use:   "number",
	Short: "Consume the next document number of a type",
	Long: `Consumes and prints the next number of the given document type, from the
default serie of the type or from the legacy counter when there is none.`,
	Example: "  gestiohub number --entreprise 1 --type FACTURE",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEntreprise(); err != nil {
			return err
		}
		docType, _ := cmd.Flags().GetString("type")
		number, err := svc.GenerateNumber(ctx(cmd), entrepriseID, common.DocumentType(strings.ToUpper(docType)))
		if err != nil {
			return err
		}
		return printJSON(cmd, number)
	},
}

func init() {
	numberCmd.Flags().StringP("type", "t", string(common.DocumentTypeFacture), "DEVIS, FACTURE or AVOIR")
	rootCmd.AddCommand(numberCmd)
}

func ctx(cmd *cobra.Command) context.Context {
	if cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
