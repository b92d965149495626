package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"minitracker/internal/core"
	"minitracker/internal/services"
)

var (
	colorAccent  = lipgloss.Color("#89b4fa")
	colorSuccess = lipgloss.Color("#a6e3a1")
	colorError   = lipgloss.Color("#f38ba8")
	colorMuted   = lipgloss.Color("#7f849c")
	colorBar     = lipgloss.Color("#fab387")
	colorTrack   = lipgloss.Color("#45475a")

	titleStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorTrack).
			Padding(0, 1).
			Width(22)
	greenStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	redStyle   = lipgloss.NewStyle().Foreground(colorError)
	barStyle   = lipgloss.NewStyle().Foreground(colorBar)
	trackStyle = lipgloss.NewStyle().Foreground(colorTrack)
)

// barWidth is the length of a full-scale bar in cells.
const barWidth = 24

// RenderDashboard draws the role-specific dashboard.
func RenderDashboard(d services.Dashboard) string {
	return services.MatchDashboard(d, renderUserDashboard, renderAdminDashboard)
}

func renderUserDashboard(u services.UserDashboard) string {
	r := u.Result
	balanceStyle := greenStyle
	if r.AvailableBalance.IsNegative() {
		balanceStyle = redStyle
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Revenue", greenStyle.Render(core.FormatEUR(r.TotalRevenue))),
		card("Expenses", redStyle.Render(core.FormatEUR(r.TotalExpense))),
		card("Balance", balanceStyle.Render(core.FormatEUR(r.AvailableBalance))),
	)

	return strings.Join([]string{
		cards,
		titleStyle.Render("Monthly"),
		renderMonthly(r.MonthlySeries),
		titleStyle.Render("Expenses by category"),
		renderCategories(r.CategoryBreakdown),
	}, "\n")
}

func renderAdminDashboard(a services.AdminDashboard) string {
	s := a.Stats
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Users", strconv.FormatInt(s.TotalUsers, 10)),
		card("Locked", strconv.FormatInt(s.LockedUsers, 10)),
		card("Global revenue", greenStyle.Render(core.FormatEUR(s.GlobalRevenue))),
		card("Global expenses", redStyle.Render(core.FormatEUR(s.GlobalExpenses))),
	)
}

func card(label, value string) string {
	return cardStyle.Render(labelStyle.Render(label) + "\n" + value)
}

func renderMonthly(series []core.MonthlyBucket) string {
	if len(series) == 0 {
		return labelStyle.Render("No entries yet.")
	}
	peak := decimal.Zero
	for _, m := range series {
		peak = decimal.Max(peak, m.RevenueTotal.Abs(), m.ExpenseTotal.Abs())
	}

	lines := make([]string, 0, 2*len(series))
	for _, m := range series {
		lines = append(lines,
			fmt.Sprintf("%-8s %s %s %s", m.Month, greenStyle.Render("+"), bar(m.RevenueTotal, peak), core.FormatEUR(m.RevenueTotal)),
			fmt.Sprintf("%-8s %s %s %s", "", redStyle.Render("-"), bar(m.ExpenseTotal, peak), core.FormatEUR(m.ExpenseTotal)),
		)
	}
	return strings.Join(lines, "\n")
}

func renderCategories(cats []core.CategoryBucket) string {
	if len(cats) == 0 {
		return labelStyle.Render("No expenses to break down.")
	}
	total := decimal.Zero
	nameW := 0
	for _, c := range cats {
		total = total.Add(c.Total.Abs())
		nameW = max(nameW, lipgloss.Width(c.Category))
	}
	nameW = min(nameW, 20)

	lines := make([]string, 0, len(cats))
	for _, c := range cats {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = c.Total.Abs().Div(total).Mul(decimal.NewFromInt(100))
		}
		lines = append(lines, fmt.Sprintf("%-*s %s %5s%% %s",
			nameW, truncate(c.Category, nameW), bar(c.Total, total), pct.StringFixed(1), core.FormatEUR(c.Total)))
	}
	return strings.Join(lines, "\n")
}

// bar draws v against full as a proportional bar. Any non-zero value gets
// at least one cell.
func bar(v, full decimal.Decimal) string {
	filled := 0
	if full.IsPositive() {
		filled = int(v.Abs().Div(full).Mul(decimal.NewFromInt(barWidth)).Round(0).IntPart())
	}
	if filled == 0 && !v.IsZero() {
		filled = 1
	}
	filled = min(filled, barWidth)
	return barStyle.Render(strings.Repeat("█", filled)) + trackStyle.Render(strings.Repeat("░", barWidth-filled))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// RenderRevenues lists revenues as id, date and amount.
func RenderRevenues(items []core.Revenue) string {
	if len(items) == 0 {
		return labelStyle.Render("No revenues.")
	}
	lines := []string{titleStyle.Render(fmt.Sprintf("%-6s %-10s %14s", "ID", "DATE", "AMOUNT"))}
	for _, r := range items {
		lines = append(lines, fmt.Sprintf("%-6d %-10s %14s", r.ID, r.Date, core.FormatEUR(r.Amount)))
	}
	return strings.Join(lines, "\n")
}

func RenderExpenses(items []core.Expense) string {
	if len(items) == 0 {
		return labelStyle.Render("No expenses.")
	}
	lines := []string{titleStyle.Render(fmt.Sprintf("%-6s %-10s %14s  %s", "ID", "DATE", "AMOUNT", "TYPE"))}
	for _, e := range items {
		lines = append(lines, fmt.Sprintf("%-6d %-10s %14s  %s", e.ID, e.Date, core.FormatEUR(e.Amount), e.Type))
	}
	return strings.Join(lines, "\n")
}

func RenderUsers(users []core.User) string {
	if len(users) == 0 {
		return labelStyle.Render("No users.")
	}
	lines := []string{titleStyle.Render(fmt.Sprintf("%-6s %-20s %-30s %-6s %s", "ID", "USERNAME", "EMAIL", "ROLE", "LOCKED"))}
	for _, u := range users {
		locked := ""
		if u.Locked {
			locked = redStyle.Render("yes")
		}
		lines = append(lines, fmt.Sprintf("%-6d %-20s %-30s %-6s %s", u.ID, u.Username, u.Email, u.Role, locked))
	}
	return strings.Join(lines, "\n")
}

func RenderProfile(u core.User) string {
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-9s", label)) + " " + value
	}
	return cardStyle.Width(48).Render(strings.Join([]string{
		titleStyle.Render(u.Username),
		row("Name", strings.TrimSpace(u.Name+" "+u.Surname)),
		row("Email", u.Email),
		row("Role", u.Role.String()),
	}, "\n"))
}
