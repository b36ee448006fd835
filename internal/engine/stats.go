package engine

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot formats the engine state for on-demand reporting.
func (s *EngineState) Snapshot() string {
	var b strings.Builder
	uptime := time.Since(s.StartedAt).Round(time.Second)

	fmt.Fprintf(&b, "=== Volume Bot Statistics ===\n")
	fmt.Fprintf(&b, "Uptime:          %s\n", uptime)
	fmt.Fprintf(&b, "Next direction:  %s\n", s.NextDirection)
	fmt.Fprintf(&b, "Attempts:        %d (%d ok, %d failed)\n", s.TotalAttempts, s.SuccessCount, s.FailureCount)
	fmt.Fprintf(&b, "Volume (SOL):    %s\n", s.CumulativeVolumeBase)
	fmt.Fprintf(&b, "Volume (USD):    %s\n", s.CumulativeVolumeUsd.StringFixed(2))
	if s.HasPurchase {
		fmt.Fprintf(&b, "Open purchase:   %s tokens (~%s USD)\n", s.LastPurchasedTokenAmount, s.LastTradeUsdNotional.StringFixed(2))
	}
	return b.String()
}
