package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a CSV bank statement and auto-match it",
	Example: `  gestiohub import --entreprise 1 --file releve-mars.csv
  cat releve.csv | gestiohub import -e 1 --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEntreprise(); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("file")
		content, err := readFile(cmd, path)
		if err != nil {
			return err
		}
		result, err := svc.ImportCSV(ctx(cmd), entrepriseID, content)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d imported, %d skipped, %d matched\n", len(result.Imported), result.Skipped, result.Matched)
		return printJSON(cmd, result)
	},
}

var automatchCmd = &cobra.Command{
	Use:   "automatch",
	Short: "Match the pending transactions against the open invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEntreprise(); err != nil {
			return err
		}
		matched, err := svc.AutoMatch(ctx(cmd), entrepriseID)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]int{"matched": matched})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the reconciliation statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEntreprise(); err != nil {
			return err
		}
		stats, err := svc.GetStats(ctx(cmd), entrepriseID)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

func init() {
	importCmd.Flags().StringP("file", "f", "", "CSV statement, - for stdin")
	importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd, automatchCmd, statsCmd)
}

func readFile(cmd *cobra.Command, path string) (string, error) {
	var reader io.Reader = cmd.InOrStdin()
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer file.Close()
		reader = file
	}
	content, err := io.ReadAll(reader)
	return string(content), err
}
