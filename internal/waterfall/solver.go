package waterfall

import "github.com/Eran5102/Valuation-sub003/internal/money"

// solverEpsilon is the relative convergence band used by the sequential
// option-exercise solver (spec.md §4.4: epsilon = 0.001).
var solverEpsilon = money.MustFromString("0.001")

// solverIterationCeiling bounds every circularity solve in this package
// (spec.md §4.3c, §4.3d, §4.4: "Hard ceiling 100 iterations").
const solverIterationCeiling = 100

// bisectionTolerance is the interval-width tolerance for the voluntary
// conversion bisection solver (spec.md §4.3d, §4.4: "tolerance 0.01").
var bisectionTolerance = money.MustFromString("0.01")

var (
	two        = money.NewFromInt(2)
	oneDotZeroFive = money.MustFromString("1.05")
)

// solveOptionExercise finds the smallest exit value X such that the
// per-share value after exercising all prior options plus this strike's n
// options first exceeds the strike, using damped successive substitution
// (spec.md §4.3c, §4.4):
//
//	perShare(X) = (X + priorProceeds + n*strike - totalLP) / (baseShares + priorExercised + n)
//
// It returns the solved exit value, the iteration count used, and whether
// the loop converged within solverIterationCeiling iterations.
func solveOptionExercise(totalLP, baseShares, priorExercised, priorProceeds, strike, n money.Decimal) (money.Decimal, int, bool) {
	denom := baseShares.Add(priorExercised).Add(n)
	if denom.LessThanOrEqual(money.Zero) {
		return money.Zero, 0, false
	}

	lowerBand := strike.Mul(money.NewFromInt(1).Sub(solverEpsilon))
	upperBand := strike.Mul(money.NewFromInt(1).Add(solverEpsilon))

	// Initial guess: totalLP plus one strike's worth of proceeds, so the
	// inflation step (x1.05) always has a non-zero seed to grow from.
	x := totalLP.Add(strike)

	for i := 1; i <= solverIterationCeiling; i++ {
		perShare := x.Add(priorProceeds).Add(n.Mul(strike)).Sub(totalLP).Div(denom)

		switch {
		case perShare.GreaterThan(upperBand):
			target := strike.Mul(money.NewFromInt(1).Add(solverEpsilon.Div(two)))
			x = target.Mul(denom).Add(totalLP).Sub(priorProceeds).Sub(n.Mul(strike))
		case perShare.LessThan(lowerBand):
			x = x.Mul(oneDotZeroFive)
		default:
			return x, i, true
		}
	}
	return x, solverIterationCeiling, false
}

// bisect finds the smallest x in [low, high] where f(x) >= 0, assuming f is
// non-decreasing on the interval (spec.md §4.3d, §4.4: "Standard interval
// halving on the sign of rvps(convert) - rvps(retain)"). It reports
// whether a genuine sign crossing was found and the solve converged within
// solverIterationCeiling iterations to within bisectionTolerance of
// interval width.
func bisect(low, high money.Decimal, f func(money.Decimal) money.Decimal) (x money.Decimal, iterations int, converged bool) {
	if f(low).GreaterThanOrEqual(money.Zero) {
		return low, 0, true
	}
	if f(high).LessThan(money.Zero) {
		return money.Zero, 0, false
	}

	for i := 1; i <= solverIterationCeiling; i++ {
		mid := low.Add(high).Div(two)
		if f(mid).GreaterThanOrEqual(money.Zero) {
			high = mid
		} else {
			low = mid
		}
		if high.Sub(low).LessThanOrEqual(bisectionTolerance) {
			return high, i, true
		}
	}
	return high, solverIterationCeiling, false
}
