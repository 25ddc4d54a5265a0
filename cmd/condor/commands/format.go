package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintRunHeader prints a formatted screen run header
func PrintRunHeader(run *contracts.ScreenRun) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s  as of %s  spot %.2f\n", run.Ticker, run.AsOf.Format(contracts.DateLayout), run.Spot)
	PrintSeparator()
	PrintKeyValue("Run ID", run.RunID, 13)
	PrintKeyValue("Strategy", run.StrategyID, 13)
	PrintKeyValue("Chain IV", fmt.Sprintf("%.4f (rank %.1f, pct %.1f)", run.ChainIV, run.IVRank, run.IVPercentile), 13)
	PrintKeyValue("Funnel", fmt.Sprintf("filtered %d → generated %d → analyzed %d → screened %d → ranked %d",
		run.Filtered, run.Generated, run.Analyzed, run.Screened, len(run.Ranked)), 13)
	if len(run.Rejected) > 0 {
		reasons := make([]string, 0, len(run.Rejected))
		for reason, n := range run.Rejected {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		PrintKeyValue("Rejected", strings.Join(reasons, " "), 13)
	}
	PrintSeparator()
}

var rankedColumns = []string{"TICKER", "#", "EXPIRY", "DTE", "STRIKES", "CREDIT", "MAX LOSS", "ROR%", "POP", "SCORE"}
var rankedWidths = []int{6, 3, 10, 4, 23, 7, 9, 7, 5, 6}

// PrintRankedTable prints merged candidates as a table
func PrintRankedTable(rows []pipeline.RankedRow) {
	if len(rows) == 0 {
		PrintWarning("No candidates passed screening")
		return
	}

	PrintTableHeader(rankedColumns, rankedWidths)
	for _, row := range rows {
		a := row.Analytics
		c := a.Condor
		PrintTableRow([]string{
			row.Ticker,
			fmt.Sprintf("%d", a.Rank),
			c.Expiration().Format(contracts.DateLayout),
			fmt.Sprintf("%d", a.DTE),
			fmt.Sprintf("%g/%g/%g/%g", c.LongPut.Strike, c.ShortPut.Strike, c.ShortCall.Strike, c.LongCall.Strike),
			fmt.Sprintf("%.2f", a.NetCredit),
			fmt.Sprintf("%.2f", a.MaxLoss),
			fmt.Sprintf("%.1f", a.ReturnOnRisk),
			optional(a.ProbabilityOfProfit, "%.2f"),
			optional(a.CompositeScore, "%.3f"),
		}, rankedWidths)
	}
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
