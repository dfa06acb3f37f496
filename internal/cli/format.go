package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"trade-journal/internal/models"
	"trade-journal/pkg/utils"
)

// FormatDate formats a trade date with the configured layout.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return utils.Placeholder
	}
	if layout == "" {
		layout = models.DateLayout
	}
	return t.Format(layout)
}

// FormatAgo formats a timestamp relative to now, e.g. "3 hours ago".
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return utils.Placeholder
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatRiskReward formats a risk-reward ratio.
func FormatRiskReward(rr float64) string {
	if rr == 0 {
		return utils.Placeholder
	}
	return fmt.Sprintf("1:%.2f", rr)
}

// FormatOptional returns the placeholder for empty strings.
func FormatOptional(s string) string {
	if strings.TrimSpace(s) == "" {
		return utils.Placeholder
	}
	return s
}

// FormatOutcome describes a trade result including break-even handling.
func FormatOutcome(t models.Trade) string {
	if !t.IsBreakEven() {
		return string(t.Outcome)
	}
	if t.BEFinalResult.IsWinOrLoss() {
		return "BE→" + string(t.BEFinalResult)
	}
	return "BE"
}

// ShortID trims a UUID for table display.
func ShortID(id string) string {
	return TruncateString(id, 8)
}

// TruncateString truncates a string to max runes with ellipsis.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// Center centers a string.
func Center(s string, length int) string {
	n := visibleLen(s)
	if n >= length {
		return s
	}
	padding := length - n
	left := padding / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", padding-left)
}
