package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfitchett/tally/internal/cli"
	"github.com/mfitchett/tally/internal/importer"
	"github.com/mfitchett/tally/internal/ingest"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank statement CSV files",
		Long: `Import transactions from bank statement CSV exports.

Each file is parsed and validated row by row. Rows already present in the
database (same date, amount, payee, and reference) are reported as
duplicates. Malformed rows are reported with their row number but never
stop the rest of the file from importing.

Reads from stdin when no files are given.`,
		RunE: runImport,
	}

	cmd.Flags().Bool("keep-duplicates", false, "Import duplicate rows instead of skipping them")
	cmd.Flags().Bool("dry-run", false, "Parse and validate without saving")

	_ = viper.BindPFlag("import.keep_duplicates", cmd.Flags().Lookup("keep-duplicates"))
	_ = viper.BindPFlag("import.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	contents, err := readImportInputs(args)
	if err != nil {
		return err
	}

	if viper.GetBool("import.dry_run") {
		return dryRunImport(contents)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := importer.New(store)
	skipDuplicates := !viper.GetBool("import.keep_duplicates")

	for name, content := range contents {
		slog.Info("importing statement", "file", name)

		var bar *progressbar.ProgressBar
		imp.OnRow = func(processed, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "importing")
			}
			_ = bar.Set(processed)
		}

		result := imp.ImportCSV(ctx, content, skipDuplicates)
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}

		printImportSummary(name, result)
	}

	return nil
}

// readImportInputs reads each named file, or stdin when no files are given.
// The returned map preserves a display name per input.
func readImportInputs(args []string) (map[string]string, error) {
	contents := make(map[string]string, len(args))

	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		contents["stdin"] = string(data)
		return contents, nil
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		contents[path] = string(data)
	}

	return contents, nil
}

func dryRunImport(contents map[string]string) error {
	fmt.Println(cli.FormatWarning("Dry run mode - not saving to database"))

	for name, content := range contents {
		rows, errs := ingest.Parse(content)
		fmt.Printf("%s: %d valid rows, %d errors\n", name, len(rows), len(errs))
		for _, e := range errs {
			fmt.Println(cli.SubtleStyle.Render("  " + e.Error()))
		}
	}

	return nil
}

func printImportSummary(name string, result *importer.Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported:   %d\n", result.ImportedCount)
	fmt.Fprintf(&b, "Duplicates: %d\n", result.DuplicateCount)
	fmt.Fprintf(&b, "Errors:     %d\n", result.ErrorCount)

	if len(result.Errors) > 0 {
		b.WriteString("\n")
		for _, e := range result.Errors {
			b.WriteString(cli.ErrorStyle.Render(e.Error()) + "\n")
		}
	}

	fmt.Println(cli.RenderBox(fmt.Sprintf("Import Summary: %s", name), strings.TrimRight(b.String(), "\n")))

	if result.Success {
		fmt.Println(cli.FormatSuccess(result.Message))
	} else {
		fmt.Println(cli.FormatWarning(result.Message))
	}
}
