// Package cli wires the cobra command tree and reports errors through the
// tagged logger at the top-most boundary.
package cli

import (
	"github.com/strata-analytics/strata/core/cli/cmd"
	"github.com/strata-analytics/strata/core/logging"
)

// Execute runs the CLI
func Execute() error {
	if err := cmd.Execute(); err != nil {
		if tag := logging.ErrorTag(err); tag == "" {
			// Not yet reported through a tagged logger.
			logging.New("cli").Error(err.Error())
		}
		return err
	}
	return nil
}
