package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/importer"
	"github.com/lepostier/lepostier/internal/progress"
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv <file>",
	Short: "Import postcards from a collection spreadsheet",
	Long: `Imports postcards from a CSV export. The encoding (UTF-8 or Windows-1252),
the delimiter (comma, semicolon or tab), the header row and the column
mapping are detected. Existing numbers are skipped unless --update is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

func init() {
	importCSVCmd.Flags().Bool("update", false, "update postcards whose number already exists")
	importCSVCmd.Flags().Bool("dry-run", false, "parse and report without writing")
	importCSVCmd.Flags().Bool("clear", false, "delete the whole catalog before importing")
	importCSVCmd.Flags().Int("limit", 0, "maximum rows to import (0 = all)")
	importCSVCmd.Flags().Bool("preview", false, "print the detected format and the first rows only")
	importCSVCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(importCSVCmd)
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	if preview, _ := cmd.Flags().GetBool("preview"); preview {
		return previewCSV(data)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	opts := importer.Options{Progress: progress.NewReporter("Importing postcards")}
	opts.Update, _ = cmd.Flags().GetBool("update")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.Clear, _ = cmd.Flags().GetBool("clear")
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	res, err := importer.Import(cmd.Context(), catalog.NewStore(database), data, opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	f := res.Format
	fmt.Printf("Encoding %s, delimiter %q, header %v, %d rows\n", f.Encoding, f.Delimiter, f.HasHeader, len(f.Rows))
	printMapping(f.Columns, res.Mapping)
	if opts.DryRun {
		fmt.Println("Dry run: nothing was written")
	}
	if res.Cleared > 0 {
		fmt.Printf("Cleared %d postcards\n", res.Cleared)
	}
	fmt.Printf("Created %d, updated %d, skipped %d, errors %d, themes %d\n",
		res.Created, res.Updated, res.Skipped, res.Errors, res.Themes)
	return nil
}

func previewCSV(data []byte) error {
	f, err := importer.Detect(data)
	if err != nil {
		return err
	}
	fmt.Printf("Encoding %s, delimiter %q, header %v, %d rows\n", f.Encoding, f.Delimiter, f.HasHeader, len(f.Rows))
	m := importer.SuggestMapping(f.Columns)
	printMapping(f.Columns, m)

	for i, record := range f.Rows {
		if i >= 10 {
			break
		}
		row, err := importer.ParseRow(m, record)
		if err != nil {
			fmt.Printf("  row %d: %v\n", i+1, err)
			continue
		}
		p := row.Postcard
		fmt.Printf("  %s  %-40s %s\n", p.Number, truncate(p.Title, 40), p.Rarity)
	}
	return nil
}

func printMapping(columns []string, m importer.Mapping) {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		i := m[importer.Field(f)]
		name := fmt.Sprintf("col_%d", i)
		if i < len(columns) {
			name = columns[i]
		}
		fmt.Printf("  %-12s <- %s\n", f, name)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
