// Package ui renders the interactive console for the one-shot selector
// miner: banner, live progress, and the found-solution report.
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Amr-9/SigHunter/pkg/search"
	"github.com/Amr-9/SigHunter/pkg/selector"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// ClearScreen clears the terminal
func ClearScreen() {
	fmt.Print("\033[H\033[2J")
}

// PrintWelcomeBanner shows the welcome screen
func PrintWelcomeBanner(version string) {
	fmt.Println()
	fmt.Printf("%s%s", ColorCyan, ColorBold)
	fmt.Println("  ╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("  ║   ███████╗██╗ ██████╗ ██╗  ██╗██╗   ██╗███╗  ██╗████████╗    ║")
	fmt.Println("  ║   ██╔════╝██║██╔════╝ ██║  ██║██║   ██║████╗ ██║╚══██╔══╝    ║")
	fmt.Println("  ║   ███████╗██║██║  ███╗███████║██║   ██║██╔██╗██║   ██║       ║")
	fmt.Println("  ║   ╚════██║██║██║   ██║██╔══██║██║   ██║██║╚████║   ██║       ║")
	fmt.Println("  ║   ███████║██║╚██████╔╝██║  ██║╚██████╔╝██║ ╚███║   ██║       ║")
	fmt.Println("  ║   ╚══════╝╚═╝ ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚══╝   ╚═╝       ║")
	fmt.Println("  ╠══════════════════════════════════════════════════════════════╣")
	fmt.Printf("  ║%s          Selector Preimage Miner %s• v%s%s                     ║\n", ColorYellow, ColorDim, version, ColorCyan+ColorBold)
	fmt.Println("  ╚══════════════════════════════════════════════════════════════╝")
	fmt.Print(ColorReset)
	fmt.Println()
}

// PrintSearchInfo displays the search configuration
func PrintSearchInfo(task *search.Task, space uint64) {
	fmt.Printf("\n    %s🚀 SEARCHING%s %s%s%s",
		ColorGreen+ColorBold, ColorReset,
		ColorBold+ColorCyan, task.Target.Hex(), ColorReset)
	fmt.Printf(" %s←%s %s%s%s▢%s(%s)%s",
		ColorDim, ColorReset,
		ColorCyan, task.Prefix, ColorBold, ColorReset+ColorCyan, task.InputTypes, ColorReset)
	fmt.Printf(" %s(space %s, %s)%s\n\n", ColorDim, FormatNumber(space), task.Strategy, ColorReset)
}

// PrintProgress shows the animated progress bar
func PrintProgress(stats search.Stats, space uint64, frame int) {
	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[frame%len(spinners)]

	attempts := float64(stats.Attempts)
	total := float64(space)
	if total == 0 {
		total = 1
	}

	// the bar tracks hit probability against the 32-bit selector space,
	// not linear coverage
	ratio := attempts / math.Min(total, math.Pow(2, 32))
	progress := 1.0 - math.Pow(0.5, 2.0*ratio)

	barWidth := 40
	filled := int(progress * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Printf("\r    %s%s%s %s%s%s %s%s%s │ %s%s%s │ %s",
		ColorCyan, spinner, ColorReset,
		ColorDim, bar, ColorReset,
		ColorGreen+ColorBold, FormatHashRate(stats.HashRate), ColorReset,
		ColorYellow, FormatNumber(stats.Attempts), ColorReset,
		FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))))
}

// FormatHashRate formats hash rate nicely
func FormatHashRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// PrintSuccess shows the found preimage
func PrintSuccess(res search.Result, target selector.Selector, elapsed time.Duration) {
	fmt.Printf("\n    %s%s╔══════════════════════════════════════════════════════════╗%s\n", ColorGreen, ColorBold, ColorReset)
	fmt.Printf("    %s%s║               ✨ PREIMAGE FOUND! ✨                      ║%s\n", ColorGreen, ColorBold, ColorReset)
	fmt.Printf("    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", ColorGreen, ColorBold, ColorReset)

	fmt.Printf("    %s🎯 SELECTOR%s\n", ColorCyan+ColorBold, ColorReset)
	fmt.Println()
	fmt.Printf("       %s%s%s%s\n", ColorGreen, ColorBold, target.Hex(), ColorReset)
	fmt.Println()

	fmt.Printf("    %s✍  SIGNATURE%s\n", ColorPurple+ColorBold, ColorReset)
	fmt.Printf("       %s%s%s\n\n", ColorYellow, res.Signature, ColorReset)

	fmt.Printf("    %s🔑 IDENTIFIER%s\n", ColorPurple+ColorBold, ColorReset)
	if res.Candidate == "" {
		fmt.Printf("       %s(empty string)%s\n\n", ColorDim, ColorReset)
	} else {
		fmt.Printf("       %s%s%s\n\n", ColorYellow, res.Candidate, ColorReset)
	}

	fmt.Printf("    %s⏱   %s%s   %s│   %s📊  %s%s%s\n\n",
		ColorCyan, ColorReset+ColorBold, FormatDuration(elapsed),
		ColorDim,
		ColorPurple, ColorReset+ColorBold, FormatNumber(res.Attempts),
		ColorReset)
}

// PrintNoSolution reports an exhausted search
func PrintNoSolution(res search.Result, elapsed time.Duration) {
	fmt.Print("\n\n")
	fmt.Printf("    %s∅ No solution%s │ %s candidates │ %s\n",
		ColorYellow+ColorBold, ColorReset,
		FormatNumber(res.Attempts),
		FormatDuration(elapsed))
}

// ClearLine clears the current line
func ClearLine() {
	fmt.Print("\r                                                                                              \r")
}

// FormatNumber adds commas to large numbers
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatDuration formats duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
