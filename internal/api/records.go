package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"minitracker/internal/core"
	"minitracker/internal/log"
)

// listPageSize matches the page the original client asked for; the ledger is
// fetched whole for aggregation.
const listPageSize = 1000

// Page is the paging envelope of list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

type revenueDTO struct {
	RevenueID int64           `json:"revenueId"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
}

type expenseDTO struct {
	ExpenseID int64           `json:"expenseId"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
}

// Amounts go out as bare JSON numbers; decimal.Decimal marshals as a string.
type revenuePayload struct {
	Date   string      `json:"date"`
	Amount json.Number `json:"amount"`
}

type expensePayload struct {
	Date   string      `json:"date"`
	Amount json.Number `json:"amount"`
	Type   string      `json:"type"`
}

func (d revenueDTO) toCore() core.Revenue {
	return core.Revenue{ID: d.RevenueID, Date: d.Date, Amount: d.Amount}
}

func (d expenseDTO) toCore() core.Expense {
	return core.Expense{ID: d.ExpenseID, Date: d.Date, Amount: d.Amount, Type: d.Type}
}

func ledgerPath(userID int64, kind string) string {
	return "/user/" + strconv.FormatInt(userID, 10) + "/" + kind
}

func ledgerQuery() url.Values {
	return url.Values{
		"page": {"0"},
		"size": {strconv.Itoa(listPageSize)},
		"sort": {"date,asc"},
	}
}

func cacheKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}

// listKey scopes a cached listing to the token that fetched it, so a revoked
// token misses the cache and reaches the API. The user prefix keeps
// invalidation per user.
func listKey(sess *core.Session) string {
	sum := sha256.Sum256([]byte(sess.Token))
	return cacheKey(sess.UserID) + hex.EncodeToString(sum[:8])
}

// warnTruncated flags ledgers larger than one page; only the first page is
// aggregated.
func (c *Client) warnTruncated(ctx context.Context, sess *core.Session, kind string, totalPages int, totalElements int64) {
	if totalPages <= 1 {
		return
	}
	c.logger.WarnContext(ctx, "Ledger listing truncated to first page",
		log.FieldEndpoint, ledgerPath(sess.UserID, kind),
		log.FieldUserID, sess.UserID,
		"total_pages", totalPages,
		"total_elements", totalElements,
		"page_size", listPageSize)
}

// ListRevenues returns the session owner's revenues in date order.
func (c *Client) ListRevenues(ctx context.Context, sess *core.Session) ([]core.Revenue, error) {
	key := listKey(sess)
	if c.revenues != nil {
		if cached, ok := c.revenues.Get(key); ok {
			return slices.Clone(cached), nil
		}
	}

	var page Page[revenueDTO]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     ledgerPath(sess.UserID, "revenue"),
		query:    ledgerQuery(),
		sess:     sess,
		fallback: "cannot load revenues",
	}, &page)
	if err != nil {
		return nil, err
	}
	c.warnTruncated(ctx, sess, "revenue", page.TotalPages, page.TotalElements)

	out := make([]core.Revenue, len(page.Content))
	for i, d := range page.Content {
		out[i] = d.toCore()
	}
	if c.revenues != nil {
		c.revenues.Set(key, slices.Clone(out))
	}
	return out, nil
}

// CreateRevenue stores r for the session owner and returns the stored entry.
func (c *Client) CreateRevenue(ctx context.Context, sess *core.Session, r core.Revenue) (core.Revenue, error) {
	var created revenueDTO
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     ledgerPath(sess.UserID, "revenue"),
		body:     revenuePayload{Date: r.Date, Amount: json.Number(r.Amount.String())},
		sess:     sess,
		fallback: "cannot save revenue",
	}, &created)
	if err != nil {
		return core.Revenue{}, err
	}
	c.invalidate(sess.UserID)

	if created.RevenueID == 0 {
		return r, nil
	}
	return created.toCore(), nil
}

func (c *Client) DeleteRevenue(ctx context.Context, sess *core.Session, id int64) error {
	err := c.do(ctx, request{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("%s/%d", ledgerPath(sess.UserID, "revenue"), id),
		sess:     sess,
		fallback: "cannot delete revenue",
	}, nil)
	if err != nil {
		return err
	}
	c.invalidate(sess.UserID)
	return nil
}

// ListExpenses returns the session owner's expenses in date order.
func (c *Client) ListExpenses(ctx context.Context, sess *core.Session) ([]core.Expense, error) {
	key := listKey(sess)
	if c.expenses != nil {
		if cached, ok := c.expenses.Get(key); ok {
			return slices.Clone(cached), nil
		}
	}

	var page Page[expenseDTO]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     ledgerPath(sess.UserID, "expense"),
		query:    ledgerQuery(),
		sess:     sess,
		fallback: "cannot load expenses",
	}, &page)
	if err != nil {
		return nil, err
	}
	c.warnTruncated(ctx, sess, "expense", page.TotalPages, page.TotalElements)

	out := make([]core.Expense, len(page.Content))
	for i, d := range page.Content {
		out[i] = d.toCore()
	}
	if c.expenses != nil {
		c.expenses.Set(key, slices.Clone(out))
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, sess *core.Session, e core.Expense) (core.Expense, error) {
	var created expenseDTO
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     ledgerPath(sess.UserID, "expense"),
		body:     expensePayload{Date: e.Date, Amount: json.Number(e.Amount.String()), Type: e.Type},
		sess:     sess,
		fallback: "cannot save expense",
	}, &created)
	if err != nil {
		return core.Expense{}, err
	}
	c.invalidate(sess.UserID)

	if created.ExpenseID == 0 {
		return e, nil
	}
	return created.toCore(), nil
}

func (c *Client) DeleteExpense(ctx context.Context, sess *core.Session, id int64) error {
	err := c.do(ctx, request{
		method:   http.MethodDelete,
		path:     fmt.Sprintf("%s/%d", ledgerPath(sess.UserID, "expense"), id),
		sess:     sess,
		fallback: "cannot delete expense",
	}, nil)
	if err != nil {
		return err
	}
	c.invalidate(sess.UserID)
	return nil
}

// FetchLedger loads revenues and expenses concurrently. The first failure
// cancels the other request.
func (c *Client) FetchLedger(ctx context.Context, sess *core.Session) ([]core.Revenue, []core.Expense, error) {
	var (
		revenues []core.Revenue
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revenues, err = c.ListRevenues(gctx, sess)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = c.ListExpenses(gctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return revenues, expenses, nil
}

// Invalidate drops cached listings for a user. Consumers that learn about
// changes made elsewhere call it before reloading.
func (c *Client) Invalidate(userID int64) {
	c.invalidate(userID)
}

func (c *Client) invalidate(userID int64) {
	key := cacheKey(userID)
	if c.revenues != nil {
		c.revenues.DeletePrefix(key)
	}
	if c.expenses != nil {
		c.expenses.DeletePrefix(key)
	}
}
