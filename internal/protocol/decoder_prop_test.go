package protocol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// Populated book levels are always min(declared count, tokens present, 5),
// regardless of how the feed over- or under-populates a side.
func TestDecodeDepth_PopulationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("populated levels = min(declared, tokens, 5)", prop.ForAll(
		func(bidDeclared, bidTokens, askDeclared, askTokens int) bool {
			line := depthLineWith(bidDeclared, bidTokens, askDeclared, askTokens)
			d, err := DecodeDepth(line, "20251119")
			if err != nil {
				return false
			}
			return countLevels(d.Bids) == minOf(bidDeclared, bidTokens, domain.MaxDepthLevels) &&
				countLevels(d.Asks) == minOf(askDeclared, askTokens, domain.MaxDepthLevels) &&
				d.BidCount == bidDeclared && d.AskCount == askDeclared
		},
		gen.IntRange(0, 8),
		gen.IntRange(0, 8),
		gen.IntRange(0, 8),
		gen.IntRange(0, 8),
	))

	properties.Property("levels keep declared order and exact values", prop.ForAll(
		func(tokens int) bool {
			line := depthLineWith(tokens, tokens, 0, 0)
			d, err := DecodeDepth(line, "20251119")
			if err != nil {
				return false
			}
			for i := 0; i < minOf(tokens, tokens, domain.MaxDepthLevels); i++ {
				lvl := d.Bids[i]
				if lvl == nil || lvl.Price.Scaled() != int64(1000000-i*5000) || lvl.Volume != int64(i+1) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

// depthLineWith builds a depth line with the given declared counts and
// actual token counts per side. Bid prices descend from 100.0000, ask
// prices ascend from 100.5000.
func depthLineWith(bidDeclared, bidTokens, askDeclared, askTokens int) string {
	var sb strings.Builder
	sb.WriteString("Depth,2330  ,91814838927")

	fmt.Fprintf(&sb, ",BID:%d", bidDeclared)
	for i := 0; i < bidTokens; i++ {
		fmt.Fprintf(&sb, ",%d*%d", 1000000-i*5000, i+1)
	}
	fmt.Fprintf(&sb, ",ASK:%d", askDeclared)
	for i := 0; i < askTokens; i++ {
		fmt.Fprintf(&sb, ",%d*%d", 1005000+i*5000, i+1)
	}
	return sb.String()
}

func countLevels(levels [domain.MaxDepthLevels]*domain.PriceLevel) int {
	n := 0
	for _, lvl := range levels {
		if lvl != nil {
			n++
		}
	}
	return n
}

func minOf(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
