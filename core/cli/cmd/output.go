package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-analytics/strata/core/frame"
	"github.com/strata-analytics/strata/core/shared/errors"
)

var (
	outputFormat string
	outputPath   string
	maxRows      int
)

// addOutputFlags registers the shared result-output flags on a command.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, csv or json")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Max rows to print in table format (0 = all)")
}

// writeResults renders step results. Tables print every step; csv and
// json emit the final step's frame, the product of the extraction.
func writeResults(stdout io.Writer, results []*frame.Frame) error {
	if len(results) == 0 {
		return nil
	}

	w := stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch outputFormat {
	case "table":
		opts := frame.DefaultFormatOptions()
		opts.MaxRows = maxRows
		for i, result := range results {
			if len(results) > 1 {
				if _, err := fmt.Fprintf(w, "-- step %d/%d\n", i+1, len(results)); err != nil {
					return err
				}
			}
			if err := result.Render(w, opts); err != nil {
				return err
			}
		}
		return nil
	case "csv":
		return results[len(results)-1].WriteCSV(w)
	case "json":
		return results[len(results)-1].EncodeJSON(w)
	default:
		return errors.Newf(errors.ErrCodeInvalidInput,
			"unknown output format '%s' (want table, csv or json)", outputFormat)
	}
}

// writeFrame renders a single frame with the shared output flags.
func writeFrame(stdout io.Writer, f *frame.Frame) error {
	return writeResults(stdout, []*frame.Frame{f})
}
