package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"w3lottery/internal/models"
)

// LotteryParams filters ListLotteries.
type LotteryParams struct {
	PageParams
	TicketName string
	TypeID     string
}

// IssueParams filters ListIssues.
type IssueParams struct {
	PageParams
	LotteryID   string
	IssueNumber string
	Status      models.IssueStatus
}

// TicketParams filters ListTickets.
type TicketParams struct {
	PageParams
	IssueID      string
	BuyerAddress string
}

// WinnerParams filters ListWinners.
type WinnerParams struct {
	PageParams
	IssueID    string
	Address    string
	PrizeLevel string
}

func (c *Client) ListTypes(ctx context.Context) ([]models.LotteryType, error) {
	var out []models.LotteryType
	if _, err := c.do(ctx, "list_types", http.MethodGet, "/lottery/types/v2", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateType(ctx context.Context, req models.LotteryTypeRequest) (*models.LotteryType, error) {
	var out models.LotteryType
	if _, err := c.do(ctx, "create_type", http.MethodPost, "/lottery/types/v2", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListLotteries(ctx context.Context, p LotteryParams) (*models.LotteryPage, error) {
	q := url.Values{}
	setIf(q, "ticket_name", p.TicketName)
	setIf(q, "type_id", p.TypeID)
	p.apply(q)

	var out models.LotteryPage
	if _, err := c.do(ctx, "list_lotteries", http.MethodGet, "/lottery/lottery/v2", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateLottery(ctx context.Context, req models.LotteryRequest) (*models.Lottery, error) {
	var out models.Lottery
	if _, err := c.do(ctx, "create_lottery", http.MethodPost, "/lottery/lottery/v2", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListIssues(ctx context.Context, p IssueParams) (*models.IssuePage, error) {
	q := url.Values{}
	setIf(q, "lottery_id", p.LotteryID)
	setIf(q, "issue_number", p.IssueNumber)
	setIf(q, "status", string(p.Status))
	p.apply(q)

	var out models.IssuePage
	if _, err := c.do(ctx, "list_issues", http.MethodGet, "/lottery/issues/v2", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateIssue(ctx context.Context, req models.LotteryIssueRequest) (*models.LotteryIssue, error) {
	var out models.LotteryIssue
	if _, err := c.do(ctx, "create_issue", http.MethodPost, "/lottery/issues/v2", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTickets(ctx context.Context, p TicketParams) (*models.TicketPage, error) {
	q := url.Values{}
	setIf(q, "issue_id", p.IssueID)
	setIf(q, "buyer_address", p.BuyerAddress)
	p.apply(q)

	var out models.TicketPage
	if _, err := c.do(ctx, "list_tickets", http.MethodGet, "/lottery/tickets/v2", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BuyTicket(ctx context.Context, req models.BuyTicketRequest) (*models.LotteryTicket, error) {
	var out models.LotteryTicket
	if _, err := c.do(ctx, "buy_ticket", http.MethodPost, "/lottery/tickets/v2", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListWinners(ctx context.Context, p WinnerParams) (*models.WinnerPage, error) {
	q := url.Values{}
	setIf(q, "issue_id", p.IssueID)
	setIf(q, "address", p.Address)
	setIf(q, "prize_level", p.PrizeLevel)
	p.apply(q)

	var out models.WinnerPage
	if _, err := c.do(ctx, "list_winners", http.MethodGet, "/lottery/winners/v2", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Draw asks the backend to draw an issue and returns the HTTP status code.
func (c *Client) Draw(ctx context.Context, issueID string) (int, error) {
	body := map[string]string{"issue_id": issueID}
	return c.do(ctx, "draw", http.MethodPost, "/lottery/draw/v2", nil, body, nil)
}

// PrizePool returns the total prize pool across open issues.
func (c *Client) PrizePool(ctx context.Context) (decimal.Decimal, error) {
	var out decimal.Decimal
	if _, err := c.do(ctx, "prize_pool", http.MethodGet, "/lottery/pools/v2", nil, nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out, nil
}

// LatestResults returns the latest draw per lottery (v1 route).
func (c *Client) LatestResults(ctx context.Context) ([]models.LatestResult, error) {
	var out []models.LatestResult
	if _, err := c.do(ctx, "latest_results", http.MethodGet, "/lottery/draw/latest", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentWinners returns the recent winners summary (v1 route).
func (c *Client) RecentWinners(ctx context.Context) ([]models.RecentWinner, error) {
	var out []models.RecentWinner
	if _, err := c.do(ctx, "recent_winners", http.MethodGet, "/lottery/recent-winners", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
