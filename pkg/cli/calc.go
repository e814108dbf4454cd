package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"fiverflow/pkg/services/calc"

	"github.com/spf13/cobra"
)

var calcCmd = &cobra.Command{
	Use:   "calc [file]",
	Short: "Compute invoice totals from JSON",
	Long: `Reads {"items": [...], "tax_rate": n, "discount": n} from the given file,
or stdin when no file is given, and prints the computed totals as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCalc,
}

func runCalc(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var in calc.Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(calc.ComputeInvoice(in))
}
