package captable

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ContentHash renders a stable 16-hex-digit digest over the CapTable's
// input fields alone (no analysis result), used as the resultcache lookup
// key: two requests for structurally-equal cap tables hash identically and
// can share a cached analysis (spec.md §9's note on result caching).
func (c CapTable) ContentHash() string {
	var b strings.Builder

	b.WriteString("shareClasses:\n")
	for _, s := range c.ShareClasses {
		fmt.Fprintf(&b, "  id=%s kind=%s shares=%d price=%s lpMultiple=%s conversionRatio=%s rank=%d prefType=%s cap=%s hasCap=%t\n",
			s.ID, s.Kind, s.SharesOutstanding, s.PricePerShare.Canonical(), s.LPMultiple.Canonical(),
			s.ConversionRatio.Canonical(), s.SeniorityRank, s.PreferenceType, s.ParticipationCap.Canonical(), s.HasParticipationCap)
	}

	b.WriteString("optionGrants:\n")
	for _, g := range c.OptionGrants {
		fmt.Fprintf(&b, "  id=%s numOptions=%d vestedCount=%d strike=%s\n",
			g.ID, g.NumOptions, g.VestedCount, g.StrikePrice.Canonical())
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
