// Package stats implements the two-proportion z-test arithmetic behind
// campaign A/B-test sizing: p-values, power, minimum sample size, and
// minimum detectable effect.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/strata-analytics/strata/core/shared/errors"
)

// Defaults shared by the CLI and the search routines.
const (
	DefaultSignificance = 0.05
	DefaultMinPower     = 0.8

	DefaultSampleSizeStep = 100
	DefaultSampleSizeMax  = 1_000_000

	DefaultEffectStep = 0.0001
	DefaultEffectMax  = 1.0
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// PValue returns the probability of observing a difference at least as
// extreme as mean under the null hypothesis (mean 0, the same sd). A
// two-sided test doubles the one-sided tail.
func PValue(mean, sd float64, twoSided bool) float64 {
	z := mean / sd
	p := stdNormal.Survival(math.Abs(z))
	if twoSided {
		p *= 2
	}
	return p
}

// Power returns the probability of detecting a true difference between the
// control rate pA and the treatment rate pB at the given significance,
// with per-group standard errors se1 and se2. The rejection threshold sits
// at the null distribution's significance quantile; power is the mass of
// the alternative beyond it, taken from whichever side the effect points.
func Power(pA, pB, se1, se2 float64, twoSided bool, significance float64) float64 {
	positive := pB > pA
	nullZ := stdNormal.Quantile(1 - significance)
	if positive || !twoSided {
		return stdNormal.Survival((pA + se1*nullZ - pB) / se2)
	}
	return stdNormal.Survival((pB + se2*nullZ - pA) / se1)
}

// Experiment describes one A/B test configuration.
type Experiment struct {
	// BaselineRate is the control group's success proportion.
	BaselineRate float64
	// MinDetectEffect is the smallest rate difference worth detecting.
	MinDetectEffect float64
	// NobsA is the control group size.
	NobsA int
	// NobsB is the treatment group size; 0 means same as NobsA.
	NobsB int
	// TwoSided selects a two-sided test.
	TwoSided bool
	// Significance is the p-value threshold; 0 means 0.05.
	Significance float64
	// MinPower is the required power; 0 means 0.8.
	MinPower float64
}

// Evaluation is the outcome of evaluating one experiment configuration.
type Evaluation struct {
	PValue      float64
	Power       float64
	Significant bool
}

func (e Experiment) withDefaults() Experiment {
	if e.NobsB == 0 {
		e.NobsB = e.NobsA
	}
	if e.Significance == 0 {
		e.Significance = DefaultSignificance
	}
	if e.MinPower == 0 {
		e.MinPower = DefaultMinPower
	}
	return e
}

func (e Experiment) validate() error {
	if e.BaselineRate <= 0 || e.BaselineRate >= 1 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"baseline rate must be in (0, 1), got %g", e.BaselineRate)
	}
	if e.NobsA <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"control group size must be positive, got %d", e.NobsA)
	}
	if e.NobsB < 0 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"treatment group size must not be negative, got %d", e.NobsB)
	}
	if e.Significance <= 0 || e.Significance >= 1 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"significance must be in (0, 1), got %g", e.Significance)
	}
	if e.MinPower <= 0 || e.MinPower >= 1 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"minimum power must be in (0, 1), got %g", e.MinPower)
	}
	return nil
}

// Evaluate computes the p-value and power for the experiment and whether
// it clears both thresholds.
func (e Experiment) Evaluate() (Evaluation, error) {
	e = e.withDefaults()
	if err := e.validate(); err != nil {
		return Evaluation{}, err
	}

	pA := e.BaselineRate
	pB := pA + e.MinDetectEffect

	// A two-sided test splits the significance across both tails for the
	// power computation; the p-value threshold itself stays whole.
	significance := e.Significance
	if e.TwoSided {
		significance /= 2
	}

	// Standard error of each group's observed proportion.
	se1 := math.Sqrt(pA * (1 - pA) / float64(e.NobsA))
	se2 := math.Sqrt(pB * (1 - pB) / float64(e.NobsB))

	// The difference of the two proportions has variance equal to the sum
	// of the group variances; this is the sd of both hypotheses.
	sdOfSum := math.Sqrt(se1*se1 + se2*se2)

	// The alternative hypothesis is centered on the true difference.
	dHat := pB - pA

	pValue := PValue(dHat, sdOfSum, e.TwoSided)
	power := Power(pA, pB, se1, se2, e.TwoSided, significance)

	return Evaluation{
		PValue:      pValue,
		Power:       power,
		Significant: power >= e.MinPower && pValue <= e.Significance,
	}, nil
}

// SampleSizeSearch bounds the minimum-sample-size scan.
type SampleSizeSearch struct {
	// Step is the scan increment; 0 means 100.
	Step int
	// Max is the exclusive feasibility bound; 0 means 1,000,000.
	Max int
}

// MinSampleSize scans group sizes from Step upward and returns the first
// per-group size at which the experiment clears both the significance and
// power thresholds. Past Max without success it returns an INFEASIBLE
// error: no affordable group size can make the test conclusive.
func MinSampleSize(e Experiment, search SampleSizeSearch) (int, error) {
	if search.Step <= 0 {
		search.Step = DefaultSampleSizeStep
	}
	if search.Max <= 0 {
		search.Max = DefaultSampleSizeMax
	}

	for nobs := search.Step; nobs < search.Max; nobs += search.Step {
		candidate := e
		candidate.NobsA = nobs
		candidate.NobsB = 0 // equal group sizes

		eval, err := candidate.Evaluate()
		if err != nil {
			return 0, err
		}
		if eval.Significant {
			return nobs, nil
		}
	}
	return 0, errors.Newf(errors.ErrCodeInfeasible,
		"no sample size below %d reaches the required power and significance", search.Max)
}

// EffectSearch bounds the minimum-detectable-effect scan.
type EffectSearch struct {
	// Step is the scan increment; 0 means 0.0001.
	Step float64
	// Max is the largest effect tested; 0 means 1.
	Max float64
}

// MinDetectableEffect scans effect sizes from Step upward and returns the
// smallest effect the experiment can detect with the required power and
// significance at the given group sizes. Past Max without success it
// returns an INFEASIBLE error.
func MinDetectableEffect(e Experiment, search EffectSearch) (float64, error) {
	if search.Step <= 0 {
		search.Step = DefaultEffectStep
	}
	if search.Max <= 0 {
		search.Max = DefaultEffectMax
	}

	// Integer stepping avoids accumulating float error over long scans.
	for i := 1; ; i++ {
		effect := float64(i) * search.Step
		if effect > search.Max+search.Step/2 {
			break
		}

		candidate := e
		candidate.MinDetectEffect = effect

		eval, err := candidate.Evaluate()
		if err != nil {
			return 0, err
		}
		if eval.Significant {
			return effect, nil
		}
	}
	return 0, errors.Newf(errors.ErrCodeInfeasible,
		"no effect size up to %g is detectable at the required power and significance", search.Max)
}
