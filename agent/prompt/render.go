package prompt

import (
	"fmt"
	"strings"
)

// Context carries the business facts rendered into every system prompt.
// Optional facts are pointers; a nil field omits its line entirely rather
// than printing a zero value. Line order is fixed.
type Context struct {
	TodayDate     string
	Currency      string
	BudgetLimit   *float64
	WalletBalance *float64
	DaysRemaining *int
	VisionNote    string
	Task          string
}

// Render produces the business-context block appended to an agent's base
// prompt. Pure function of the struct.
func (c Context) Render() string {
	var b strings.Builder

	if c.TodayDate != "" {
		fmt.Fprintf(&b, "Today's date: %s\n", c.TodayDate)
	}
	if c.Currency != "" {
		fmt.Fprintf(&b, "Currency: %s\n", c.Currency)
	}
	if c.BudgetLimit != nil {
		fmt.Fprintf(&b, "Monthly budget limit: %.2f %s\n", *c.BudgetLimit, c.Currency)
	}
	if c.WalletBalance != nil {
		fmt.Fprintf(&b, "Wallet balance: %.2f %s\n", *c.WalletBalance, c.Currency)
	}
	if c.DaysRemaining != nil {
		fmt.Fprintf(&b, "Days remaining in billing period: %d\n", *c.DaysRemaining)
	}
	if strings.TrimSpace(c.VisionNote) != "" {
		fmt.Fprintf(&b, "\nAttached image analysis:\n%s\n", strings.TrimSpace(c.VisionNote))
	}
	if strings.TrimSpace(c.Task) != "" {
		fmt.Fprintf(&b, "\nDelegated task: %s\n", strings.TrimSpace(c.Task))
	}

	return strings.TrimRight(b.String(), "\n")
}

// Compose joins an agent's base prompt with the rendered business context.
func Compose(base string, c Context) string {
	rendered := c.Render()
	if rendered == "" {
		return base
	}
	return base + "\n\n" + rendered
}
