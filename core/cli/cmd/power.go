package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-analytics/strata/core/shared/errors"
	"github.com/strata-analytics/strata/core/stats"
)

var (
	baseline     float64
	effect       float64
	nobsA        int
	nobsB        int
	twoSided     bool
	significance float64
	minPower     float64
	searchStep   float64
	searchMax    float64
)

// powerCmd evaluates one experiment configuration.
var powerCmd = &cobra.Command{
	Use:           "power",
	Short:         "Compute p-value and power for an A/B test configuration",
	RunE:          runPower,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// sampleSizeCmd searches for the smallest conclusive group size.
var sampleSizeCmd = &cobra.Command{
	Use:           "sample-size",
	Short:         "Find the minimum per-group sample size for a detectable effect",
	RunE:          runSampleSize,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// detectEffectCmd searches for the smallest detectable effect.
var detectEffectCmd = &cobra.Command{
	Use:           "detect-effect",
	Short:         "Find the minimum detectable effect for given group sizes",
	RunE:          runDetectEffect,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(powerCmd)
	powerCmd.AddCommand(sampleSizeCmd, detectEffectCmd)

	for _, cmd := range []*cobra.Command{powerCmd, sampleSizeCmd, detectEffectCmd} {
		cmd.Flags().Float64VarP(&baseline, "baseline", "b", 0, "Baseline success rate of the control group (required)")
		cmd.Flags().BoolVar(&twoSided, "two-sided", false, "Run a two-sided test")
		cmd.Flags().Float64Var(&significance, "significance", stats.DefaultSignificance, "p-value threshold for statistical significance")
		cmd.Flags().Float64Var(&minPower, "power", stats.DefaultMinPower, "Minimum required power")
		cmd.MarkFlagRequired("baseline")
	}

	powerCmd.Flags().Float64VarP(&effect, "effect", "e", 0, "Minimum detectable effect (required)")
	powerCmd.Flags().IntVar(&nobsA, "nobs", 0, "Control group size (required)")
	powerCmd.Flags().IntVar(&nobsB, "nobs-b", 0, "Treatment group size (defaults to --nobs)")
	powerCmd.MarkFlagRequired("effect")
	powerCmd.MarkFlagRequired("nobs")

	sampleSizeCmd.Flags().Float64VarP(&effect, "effect", "e", 0, "Minimum detectable effect (required)")
	sampleSizeCmd.Flags().Float64Var(&searchStep, "step", float64(stats.DefaultSampleSizeStep), "Search step for the sample size scan")
	sampleSizeCmd.Flags().Float64Var(&searchMax, "max", float64(stats.DefaultSampleSizeMax), "Feasibility bound for the sample size scan")
	sampleSizeCmd.MarkFlagRequired("effect")

	detectEffectCmd.Flags().IntVar(&nobsA, "nobs", 0, "Control group size (required)")
	detectEffectCmd.Flags().IntVar(&nobsB, "nobs-b", 0, "Treatment group size (defaults to --nobs)")
	detectEffectCmd.Flags().Float64Var(&searchStep, "step", stats.DefaultEffectStep, "Search step for the effect scan")
	detectEffectCmd.Flags().Float64Var(&searchMax, "max", stats.DefaultEffectMax, "Largest effect tested")
	detectEffectCmd.MarkFlagRequired("nobs")
}

func experimentFromFlags() stats.Experiment {
	return stats.Experiment{
		BaselineRate:    baseline,
		MinDetectEffect: effect,
		NobsA:           nobsA,
		NobsB:           nobsB,
		TwoSided:        twoSided,
		Significance:    significance,
		MinPower:        minPower,
	}
}

func runPower(cmd *cobra.Command, args []string) error {
	eval, err := experimentFromFlags().Evaluate()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "baseline rate:   %.4f\n", baseline)
	fmt.Fprintf(out, "effect:          %.4f\n", effect)
	fmt.Fprintf(out, "p-value:         %.6g\n", eval.PValue)
	fmt.Fprintf(out, "power:           %.4f\n", eval.Power)
	if eval.Significant {
		fmt.Fprintln(out, "verdict:         conclusive (meets power and significance thresholds)")
	} else {
		fmt.Fprintln(out, "verdict:         inconclusive")
	}
	return nil
}

func runSampleSize(cmd *cobra.Command, args []string) error {
	n, err := stats.MinSampleSize(experimentFromFlags(), stats.SampleSizeSearch{
		Step: int(searchStep),
		Max:  int(searchMax),
	})
	if err != nil {
		if errors.IsInfeasible(err) {
			fmt.Fprintf(cmd.OutOrStdout(),
				"no feasible sample size below %d\n", int(searchMax))
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "minimum sample size per group: %d\n", n)
	return nil
}

func runDetectEffect(cmd *cobra.Command, args []string) error {
	mde, err := stats.MinDetectableEffect(experimentFromFlags(), stats.EffectSearch{
		Step: searchStep,
		Max:  searchMax,
	})
	if err != nil {
		if errors.IsInfeasible(err) {
			fmt.Fprintf(cmd.OutOrStdout(),
				"no detectable effect up to %g\n", searchMax)
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "minimum detectable effect: %.4f (%.2fpp)\n", mde, mde*100)
	return nil
}
