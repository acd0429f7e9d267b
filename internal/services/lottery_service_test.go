package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3lottery/internal/api"
	"w3lottery/internal/cache"
	"w3lottery/internal/models"
	"w3lottery/internal/views"
)

// fakeLotteryAPI is an in-memory backend. Unset hooks return empty data.
type fakeLotteryAPI struct {
	mu sync.Mutex

	lotteries []models.Lottery
	issues    []models.LotteryIssue
	tickets   []models.LotteryTicket
	winners   []models.LotteryWinner
	latest    []models.LatestResult
	summary   []models.RecentWinner
	pool      decimal.Decimal

	issueErr   map[string]error // per lottery id
	winnersErr error
	lotteryErr error
	drawStatus int
	bought     []models.BuyTicketRequest
	created    []models.LotteryIssueRequest
	calls      map[string]int
}

func newFakeLotteryAPI() *fakeLotteryAPI {
	return &fakeLotteryAPI{
		issueErr:   map[string]error{},
		drawStatus: http.StatusOK,
		calls:      map[string]int{},
	}
}

func (f *fakeLotteryAPI) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeLotteryAPI) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeLotteryAPI) ListTypes(context.Context) ([]models.LotteryType, error) {
	f.count("list_types")
	return []models.LotteryType{{TypeID: "1", TypeName: "weekly"}}, nil
}

func (f *fakeLotteryAPI) CreateType(_ context.Context, req models.LotteryTypeRequest) (*models.LotteryType, error) {
	f.count("create_type")
	return &models.LotteryType{TypeID: "9", TypeName: req.TypeName}, nil
}

func (f *fakeLotteryAPI) ListLotteries(context.Context, api.LotteryParams) (*models.LotteryPage, error) {
	f.count("list_lotteries")
	if f.lotteryErr != nil {
		return nil, f.lotteryErr
	}
	return &models.LotteryPage{Lotteries: f.lotteries, Total: len(f.lotteries)}, nil
}

func (f *fakeLotteryAPI) CreateLottery(_ context.Context, req models.LotteryRequest) (*models.Lottery, error) {
	f.count("create_lottery")
	return &models.Lottery{LotteryID: "new", TicketName: req.TicketName}, nil
}

func (f *fakeLotteryAPI) ListIssues(_ context.Context, p api.IssueParams) (*models.IssuePage, error) {
	f.count("list_issues")
	if err := f.issueErr[p.LotteryID]; err != nil {
		return nil, err
	}
	var out []models.LotteryIssue
	for _, i := range f.issues {
		if p.LotteryID != "" && i.LotteryID != p.LotteryID {
			continue
		}
		if p.Status != "" && i.Status != p.Status {
			continue
		}
		out = append(out, i)
	}
	return &models.IssuePage{Issues: out, Total: len(out)}, nil
}

func (f *fakeLotteryAPI) CreateIssue(_ context.Context, req models.LotteryIssueRequest) (*models.LotteryIssue, error) {
	f.count("create_issue")
	f.mu.Lock()
	f.created = append(f.created, req)
	f.mu.Unlock()
	if req.LotteryID == "reject" {
		return nil, &api.APIError{Status: http.StatusBadRequest, Message: "no such lottery"}
	}
	return &models.LotteryIssue{IssueID: "i-" + req.IssueNumber, LotteryID: req.LotteryID, Status: req.Status}, nil
}

func (f *fakeLotteryAPI) ListTickets(_ context.Context, p api.TicketParams) (*models.TicketPage, error) {
	f.count("list_tickets")
	var out []models.LotteryTicket
	for _, t := range f.tickets {
		if t.BuyerAddress == p.BuyerAddress {
			out = append(out, t)
		}
	}
	return &models.TicketPage{Tickets: out, Total: len(out)}, nil
}

func (f *fakeLotteryAPI) BuyTicket(_ context.Context, req models.BuyTicketRequest) (*models.LotteryTicket, error) {
	f.count("buy_ticket")
	f.mu.Lock()
	f.bought = append(f.bought, req)
	f.mu.Unlock()
	return &models.LotteryTicket{TicketID: "t-new", IssueID: req.IssueID, BetContent: req.BetContent, PurchaseAmount: req.PurchaseAmount}, nil
}

func (f *fakeLotteryAPI) ListWinners(context.Context, api.WinnerParams) (*models.WinnerPage, error) {
	f.count("list_winners")
	if f.winnersErr != nil {
		return nil, f.winnersErr
	}
	return &models.WinnerPage{Winners: f.winners, Total: len(f.winners)}, nil
}

func (f *fakeLotteryAPI) Draw(context.Context, string) (int, error) {
	f.count("draw")
	return f.drawStatus, nil
}

func (f *fakeLotteryAPI) PrizePool(context.Context) (decimal.Decimal, error) {
	f.count("prize_pool")
	return f.pool, nil
}

func (f *fakeLotteryAPI) LatestResults(context.Context) ([]models.LatestResult, error) {
	f.count("latest_results")
	return f.latest, nil
}

func (f *fakeLotteryAPI) RecentWinners(context.Context) ([]models.RecentWinner, error) {
	f.count("recent_winners")
	return f.summary, nil
}

func seededAPI() *fakeLotteryAPI {
	f := newFakeLotteryAPI()
	daily := &models.LotteryType{TypeID: "2", TypeName: "daily"}
	weekly := &models.LotteryType{TypeID: "1", TypeName: "weekly"}
	f.lotteries = []models.Lottery{
		{LotteryID: "L1", TypeID: "2", TicketName: "Daily 3", TicketPrice: decimal.RequireFromString("2.5"), LotteryType: daily},
		{LotteryID: "L2", TypeID: "1", TicketName: "Weekly Max", TicketPrice: decimal.NewFromInt(10), LotteryType: weekly},
		{LotteryID: "L3", TypeID: "3", TicketName: "Monthly", TicketPrice: decimal.NewFromInt(1)},
	}
	f.issues = []models.LotteryIssue{
		{IssueID: "I1", LotteryID: "L1", IssueNumber: "101", Status: models.IssuePending, SaleEndTime: "2030-01-01T00:00:00Z"},
		{IssueID: "I0", LotteryID: "L1", IssueNumber: "100", Status: models.IssueDrawn, WinningNumbers: "1,2,3", DrawTime: "2024-01-01T00:00:00Z"},
		{IssueID: "I2", LotteryID: "L2", IssueNumber: "201", Status: models.IssuePending},
		{IssueID: "I9", LotteryID: "L2", IssueNumber: "200", Status: models.IssueDrawn, WinningNumbers: "4,5,6"},
		{IssueID: "I8", LotteryID: "L2", IssueNumber: "199", Status: models.IssueDrawn},
	}
	return f
}

func newTestLotteryService(f *fakeLotteryAPI) (*LotteryService, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	return NewLotteryService(f, store, DefaultTTLs()), store
}

func TestLotteryService_Lotteries(t *testing.T) {
	ctx := context.Background()

	t.Run("current issue is first pending", func(t *testing.T) {
		f := seededAPI()
		s, _ := newTestLotteryService(f)

		got, err := s.Lotteries(ctx, false)
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, "L1", got[0].ID)
		require.NotNil(t, got[0].Issue)
		assert.Equal(t, "I1", got[0].Issue.ID)
		require.NotNil(t, got[1].Issue)
		assert.Equal(t, "I2", got[1].Issue.ID)
		assert.Nil(t, got[2].Issue)
		assert.Equal(t, views.UnknownType, got[2].Type)
	})

	t.Run("one failing lookup leaves that lottery without issue", func(t *testing.T) {
		f := seededAPI()
		f.issueErr["L2"] = errors.New("timeout")
		s, _ := newTestLotteryService(f)

		got, err := s.Lotteries(ctx, false)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.NotNil(t, got[0].Issue)
		assert.Nil(t, got[1].Issue)
	})

	t.Run("served from cache until forced", func(t *testing.T) {
		f := seededAPI()
		s, _ := newTestLotteryService(f)

		_, err := s.Lotteries(ctx, false)
		require.NoError(t, err)
		_, err = s.Lotteries(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, f.Calls("list_lotteries"))

		_, err = s.Lotteries(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 2, f.Calls("list_lotteries"))
	})

	t.Run("empty list is refetched", func(t *testing.T) {
		f := newFakeLotteryAPI()
		s, _ := newTestLotteryService(f)

		got, err := s.Lotteries(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, got)
		_, err = s.Lotteries(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, f.Calls("list_lotteries"))
	})

	t.Run("lookup by id", func(t *testing.T) {
		s, _ := newTestLotteryService(seededAPI())
		l, err := s.Lottery(ctx, "L2")
		require.NoError(t, err)
		assert.Equal(t, "Weekly Max", l.Name)

		_, err = s.Lottery(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestLotteryService_Results(t *testing.T) {
	f := seededAPI()
	f.latest = []models.LatestResult{
		{TypeID: "1", TicketName: "Weekly Max", WinningNumbers: "4,5,6"},
		{TypeID: "2", TicketName: "Daily 3", WinningNumbers: "1,2,3"},
		{TypeID: "7", TicketName: "Odd", WinningNumbers: "9,9,9"},
	}
	s, _ := newTestLotteryService(f)

	got, err := s.Results(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Weekly Max", got[GroupWeekly].LotteryName)
	assert.Equal(t, "Daily 3", got[GroupDaily].LotteryName)
	assert.Equal(t, "Odd", got[GroupMonthly].LotteryName)
}

func TestLotteryService_PastDraws(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestLotteryService(seededAPI())

	all, err := s.PastDraws(ctx, false, AllFilter)
	require.NoError(t, err)
	require.Len(t, all, 2, "drawn issues without numbers are dropped")

	daily, err := s.PastDraws(ctx, false, "Daily")
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "I0", daily[0].IssueID)
	assert.Equal(t, "Daily 3", daily[0].LotteryName)
	assert.Equal(t, "daily", daily[0].TypeName)
}

func TestLotteryService_RecentWinners(t *testing.T) {
	ctx := context.Background()

	t.Run("v2 winners", func(t *testing.T) {
		f := seededAPI()
		f.winners = []models.LotteryWinner{{WinnerID: "W1", Address: "0xabc"}}
		s, _ := newTestLotteryService(f)

		got, err := s.RecentWinners(ctx, false)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "0xabc", got[0].WinnerAddress)
		assert.Equal(t, 0, f.Calls("recent_winners"))
	})

	t.Run("falls back to v1 summary", func(t *testing.T) {
		f := seededAPI()
		f.winnersErr = fmt.Errorf("api: list_winners: %w", models.ErrNotFound)
		f.summary = []models.RecentWinner{{WinnerAddr: "0xdef", WinAmount: "5"}}
		s, _ := newTestLotteryService(f)

		got, err := s.RecentWinners(ctx, false)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "0xdef", got[0].WinnerAddress)
	})

	t.Run("empty v2 page stays empty", func(t *testing.T) {
		f := seededAPI()
		f.summary = []models.RecentWinner{{WinnerAddr: "0xdef", WinAmount: "5"}}
		s, _ := newTestLotteryService(f)

		got, err := s.RecentWinners(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, f.Calls("recent_winners"))
	})
}

func TestLotteryService_Tickets(t *testing.T) {
	ctx := context.Background()
	f := seededAPI()
	f.tickets = []models.LotteryTicket{
		{TicketID: "T1", IssueID: "I1", BuyerAddress: "0xabc"},
		{TicketID: "T2", IssueID: "I0", BuyerAddress: "0xabc"},
		{TicketID: "T3", IssueID: "I2", BuyerAddress: "0xother"},
	}
	s, _ := newTestLotteryService(f)

	t.Run("no address makes no request", func(t *testing.T) {
		got, err := s.Tickets(ctx, "", false, AllFilter)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, f.Calls("list_tickets"))
	})

	t.Run("joined and filtered", func(t *testing.T) {
		all, err := s.Tickets(ctx, "0xabc", false, AllFilter)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Daily 3", all[0].LotteryName)

		drawn, err := s.Tickets(ctx, "0xabc", false, "drawn")
		require.NoError(t, err)
		require.Len(t, drawn, 1)
		assert.Equal(t, "T2", drawn[0].ID)
		assert.Equal(t, 1, f.Calls("list_tickets"))
	})
}

func TestLotteryService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("successful purchase", func(t *testing.T) {
		f := seededAPI()
		s, store := newTestLotteryService(f)

		_, err := s.Tickets(ctx, "0xabc", false, AllFilter)
		require.NoError(t, err)
		_, err = s.PrizePool(ctx, false)
		require.NoError(t, err)

		ticket, err := s.Purchase(ctx, PurchaseRequest{LotteryID: "L1", Address: "0xabc", Numbers: []int{30, 4, 17}, Count: 3})
		require.NoError(t, err)
		require.NotNil(t, ticket)

		require.Len(t, f.bought, 1)
		assert.Equal(t, "I1", f.bought[0].IssueID)
		assert.Equal(t, "4,17,30", f.bought[0].BetContent)
		assert.Equal(t, "7.5", f.bought[0].PurchaseAmount.String())

		_, err = store.Get(ctx, cache.TicketsKey("0xabc"))
		assert.ErrorIs(t, err, cache.ErrMiss)
		_, err = store.Get(ctx, cache.KeyPrizePool)
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	tests := []struct {
		name string
		req  PurchaseRequest
		want error
	}{
		{"no address", PurchaseRequest{LotteryID: "L1", Numbers: []int{1, 2, 3}, Count: 1}, models.ErrInvalidInput},
		{"too few numbers", PurchaseRequest{LotteryID: "L1", Address: "0xabc", Numbers: []int{1, 2}, Count: 1}, models.ErrInvalidInput},
		{"duplicate numbers", PurchaseRequest{LotteryID: "L1", Address: "0xabc", Numbers: []int{1, 1, 2}, Count: 1}, models.ErrInvalidInput},
		{"out of range", PurchaseRequest{LotteryID: "L1", Address: "0xabc", Numbers: []int{1, 2, 37}, Count: 1}, models.ErrInvalidInput},
		{"zero count", PurchaseRequest{LotteryID: "L1", Address: "0xabc", Numbers: []int{1, 2, 3}, Count: 0}, models.ErrInvalidInput},
		{"no current issue", PurchaseRequest{LotteryID: "L3", Address: "0xabc", Numbers: []int{1, 2, 3}, Count: 1}, models.ErrNoActiveIssue},
		{"unknown lottery", PurchaseRequest{LotteryID: "L404", Address: "0xabc", Numbers: []int{1, 2, 3}, Count: 1}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := seededAPI()
			s, _ := newTestLotteryService(f)
			_, err := s.Purchase(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.bought)
		})
	}
}

func TestQuickPick(t *testing.T) {
	rules := BetRules("pick three from thirty six")
	assert.Equal(t, Rules{MaxNumbers: 3, NumberRange: 36}, rules)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		pick := QuickPick(rules, rng)
		require.NoError(t, rules.Validate(pick))
		assert.IsIncreasing(t, pick)
	}
}

func TestLotteryService_AdminWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("create issue defaults to pending and drops caches", func(t *testing.T) {
		f := seededAPI()
		s, store := newTestLotteryService(f)
		_, err := s.Lotteries(ctx, false)
		require.NoError(t, err)
		_, err = s.Issues(ctx, false)
		require.NoError(t, err)

		_, err = s.CreateIssue(ctx, "L1", "102", "2030-02-01T20:00", "")
		require.NoError(t, err)
		require.Len(t, f.created, 1)
		assert.Equal(t, models.IssuePending, f.created[0].Status)
		assert.Equal(t, "2030-02-01T20:00:00Z", f.created[0].SaleEndTime)

		_, err = store.Get(ctx, cache.KeyLotteries)
		assert.ErrorIs(t, err, cache.ErrMiss)
		_, err = store.Get(ctx, cache.KeyIssues)
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("create issue validates", func(t *testing.T) {
		s, _ := newTestLotteryService(seededAPI())
		_, err := s.CreateIssue(ctx, "L1", "", "2030-02-01T20:00:00Z", "")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		_, err = s.CreateIssue(ctx, "L1", "103", "soon", "")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("create type drops types cache", func(t *testing.T) {
		f := seededAPI()
		s, _ := newTestLotteryService(f)
		_, err := s.Types(ctx, false)
		require.NoError(t, err)
		_, err = s.CreateType(ctx, "hourly", "every hour")
		require.NoError(t, err)
		_, err = s.Types(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, f.Calls("list_types"))
	})

	t.Run("create lottery with first issue", func(t *testing.T) {
		f := seededAPI()
		s, _ := newTestLotteryService(f)
		l, err := s.CreateLottery(ctx, models.LotteryRequest{
			TypeID: "2", TicketName: "Flash", TicketPrice: decimal.NewFromInt(1), TicketSupply: 100,
		}, &models.LotteryIssueRequest{IssueNumber: "1", SaleEndTime: "2030-01-01T00:00:00Z"})
		require.NoError(t, err)
		assert.Equal(t, "new", l.LotteryID)
		require.Len(t, f.created, 1)
		assert.Equal(t, "new", f.created[0].LotteryID)
	})

	t.Run("draw drops results caches on success", func(t *testing.T) {
		f := seededAPI()
		s, store := newTestLotteryService(f)
		_, err := s.PastDraws(ctx, false, AllFilter)
		require.NoError(t, err)

		status, err := s.ExecuteDraw(ctx, "I1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		_, err = store.Get(ctx, cache.KeyPastDraws)
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("draw keeps caches on non-200", func(t *testing.T) {
		f := seededAPI()
		f.drawStatus = http.StatusAccepted
		s, store := newTestLotteryService(f)
		_, err := s.PastDraws(ctx, false, AllFilter)
		require.NoError(t, err)

		status, err := s.ExecuteDraw(ctx, "I1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, status)
		_, err = store.Get(ctx, cache.KeyPastDraws)
		assert.NoError(t, err)
	})
}

func TestLotteryService_ImportIssues(t *testing.T) {
	f := seededAPI()
	s, _ := newTestLotteryService(f)

	input := strings.Join([]string{
		"lottery_id,issue_number,sale_end_time,draw_time",
		"L1,301,2030-03-01T20:00:00Z,2030-03-01T21:00:00Z",
		"L2,401,2030-03-02 20:00:00",
		"L2,broken",
		"L1,302,not-a-date",
		"reject,1,2030-03-01T20:00:00Z",
	}, "\n")

	res, err := s.ImportIssues(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 2, Skipped: 3}, res)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	err := ExportTicketsCSV(&buf, []views.Ticket{
		{ID: "T1", LotteryName: "Daily 3", BetContent: "1,2,3", PurchaseAmount: decimal.NewFromInt(2)},
	})
	require.NoError(t, err)

	raw := buf.String()
	require.True(t, strings.HasPrefix(raw, "\xef\xbb\xbf"))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(raw, "\xef\xbb\xbf"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ticket_id", rows[0][0])
	assert.Equal(t, "1,2,3", rows[1][5])
	assert.Equal(t, "2", rows[1][6])

	buf.Reset()
	require.NoError(t, ExportDrawsCSV(&buf, []views.Result{{IssueID: "I0", WinningNumbers: "1,2,3"}}))
	assert.Contains(t, buf.String(), "I0")
}
