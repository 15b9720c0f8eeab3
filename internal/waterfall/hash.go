package waterfall

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/Eran5102/Valuation-sub003/internal/captable"
)

// Canonicalize renders a CapTable and its analysis result as a stable
// textual form: fixed key order, decimals fixed to
// money.CanonicalFracDigits fractional digits (spec.md §4.6, §6). Two
// structurally-equal inputs always canonicalize to byte-identical strings,
// which is what VerificationHash relies on for cross-version drift
// detection.
func Canonicalize(ct captable.CapTable, result *AnalysisResult) string {
	var b strings.Builder

	b.WriteString("shareClasses:\n")
	for _, s := range ct.ShareClasses {
		fmt.Fprintf(&b, "  id=%s kind=%s shares=%d price=%s lpMultiple=%s conversionRatio=%s rank=%d prefType=%s cap=%s\n",
			s.ID, s.Kind, s.SharesOutstanding, s.PricePerShare.Canonical(), s.LPMultiple.Canonical(),
			s.ConversionRatio.Canonical(), s.SeniorityRank, s.PreferenceType, s.ParticipationCap.Canonical())
	}

	b.WriteString("optionGrants:\n")
	for _, g := range ct.OptionGrants {
		fmt.Fprintf(&b, "  id=%s numOptions=%d vestedCount=%d strike=%s\n",
			g.ID, g.NumOptions, g.VestedCount, g.StrikePrice.Canonical())
	}

	b.WriteString("breakpoints:\n")
	for _, bp := range result.Breakpoints {
		fmt.Fprintf(&b, "  type=%s exitValue=%s affected=%s\n",
			bp.Type, bp.ExitValue.Canonical(), strings.Join(bp.AffectedSecurities, ","))
	}

	return b.String()
}

// VerificationHash returns a stable 16-hex-digit digest over
// Canonicalize(ct, result), letting external pipelines detect drift
// between implementations, versions, or languages (spec.md §4.6).
func VerificationHash(ct captable.CapTable, result *AnalysisResult) string {
	sum := xxhash.Sum64String(Canonicalize(ct, result))
	return fmt.Sprintf("%016x", sum)
}
