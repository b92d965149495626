package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"minitracker/internal/core"
	"minitracker/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type (
	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	registerRequest struct {
		Name     string `json:"name"`
		Surname  string `json:"surname"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	profileRequest struct {
		Name     string `json:"name"`
		Surname  string `json:"surname"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}

	revenueRequest struct {
		Date   string      `json:"date"`
		Amount amountInput `json:"amount"`
	}

	expenseRequest struct {
		Date   string      `json:"date"`
		Amount amountInput `json:"amount"`
		Type   string      `json:"type"`
	}
)

// amountInput accepts 12.5, "12.5" and "12,50".
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	*a = amountInput(b)
	return nil
}

func (r revenueRequest) toCore() (core.Revenue, error) {
	amount, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return core.Revenue{}, err
	}
	return core.Revenue{Date: strings.TrimSpace(r.Date), Amount: amount}, nil
}

func (r expenseRequest) toCore() (core.Expense, error) {
	amount, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{Date: strings.TrimSpace(r.Date), Amount: amount, Type: sanitizeInput(r.Type)}, nil
}

type (
	sessionResponse struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}

	revenueResponse struct {
		ID     int64           `json:"id"`
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}

	expenseResponse struct {
		ID     int64           `json:"id"`
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
		Type   string          `json:"type"`
	}

	userResponse struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Surname   string `json:"surname"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		Locked    bool   `json:"locked"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}

	monthResponse struct {
		Month   string          `json:"month"`
		Revenue decimal.Decimal `json:"revenue"`
		Expense decimal.Decimal `json:"expense"`
	}

	categoryResponse struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	summaryResponse struct {
		TotalRevenue     decimal.Decimal    `json:"total_revenue"`
		TotalExpense     decimal.Decimal    `json:"total_expense"`
		AvailableBalance decimal.Decimal    `json:"available_balance"`
		Monthly          []monthResponse    `json:"monthly"`
		Categories       []categoryResponse `json:"categories"`
	}

	statsResponse struct {
		TotalUsers     int64           `json:"total_users"`
		LockedUsers    int64           `json:"locked_users"`
		GlobalRevenue  decimal.Decimal `json:"global_revenue"`
		GlobalExpenses decimal.Decimal `json:"global_expenses"`
	}

	// dashboardResponse carries exactly one of Summary and Stats.
	dashboardResponse struct {
		Role    string           `json:"role"`
		Summary *summaryResponse `json:"summary,omitempty"`
		Stats   *statsResponse   `json:"stats,omitempty"`
	}
)

func newSessionResponse(s *core.Session) sessionResponse {
	return sessionResponse{UserID: s.UserID, Role: s.Role.String()}
}

func newRevenueResponses(in []core.Revenue) []revenueResponse {
	out := make([]revenueResponse, len(in))
	for i, r := range in {
		out[i] = revenueResponse{ID: r.ID, Date: r.Date, Amount: r.Amount}
	}
	return out
}

func newExpenseResponses(in []core.Expense) []expenseResponse {
	out := make([]expenseResponse, len(in))
	for i, e := range in {
		out[i] = expenseResponse{ID: e.ID, Date: e.Date, Amount: e.Amount, Type: e.Type}
	}
	return out
}

func newUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Surname:   u.Surname,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		Locked:    u.Locked,
		AvatarURL: u.AvatarURL,
	}
}

func newDashboardResponse(d services.Dashboard) dashboardResponse {
	return services.MatchDashboard(d,
		func(u services.UserDashboard) dashboardResponse {
			sum := &summaryResponse{
				TotalRevenue:     u.Result.TotalRevenue,
				TotalExpense:     u.Result.TotalExpense,
				AvailableBalance: u.Result.AvailableBalance,
				Monthly:          make([]monthResponse, len(u.Result.MonthlySeries)),
				Categories:       make([]categoryResponse, len(u.Result.CategoryBreakdown)),
			}
			for i, m := range u.Result.MonthlySeries {
				sum.Monthly[i] = monthResponse{Month: string(m.Month), Revenue: m.RevenueTotal, Expense: m.ExpenseTotal}
			}
			for i, c := range u.Result.CategoryBreakdown {
				sum.Categories[i] = categoryResponse{Category: c.Category, Total: c.Total}
			}
			return dashboardResponse{Role: core.UserRole{}.String(), Summary: sum}
		},
		func(a services.AdminDashboard) dashboardResponse {
			return dashboardResponse{Role: core.AdminRole{}.String(), Stats: &statsResponse{
				TotalUsers:     a.Stats.TotalUsers,
				LockedUsers:    a.Stats.LockedUsers,
				GlobalRevenue:  a.Stats.GlobalRevenue,
				GlobalExpenses: a.Stats.GlobalExpenses,
			}}
		},
	)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// pathID parses the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", services.ErrInvalidID, r.PathValue("id"))
	}
	return id, nil
}

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
