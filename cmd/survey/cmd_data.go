package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// importCmd loads a CSV export into the response store
var importCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Validate and store responses from a CSV file",
	Long: `Reads responses in the column convention
(satisfaction_<section>_<category>_<n>, expectation_..., comment_...,
timestamp and demographic columns). The whole file is validated before
anything is stored. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// exportCmd writes the stored responses as CSV
var exportCmd = &cobra.Command{
	Use:   "export [FILE.csv]",
	Short: "Write every stored response as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	n, err := application.ImportCSV(ctx, in)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d responses\n", n)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	if len(args) == 0 || args[0] == "-" {
		_, err := application.ExportCSV(ctx, cmd.OutOrStdout())
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	n, err := application.ExportCSV(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported %d responses to %s\n", n, args[0])
	return nil
}
