package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"w3lottery/internal/api"
	"w3lottery/internal/cache"
	"w3lottery/internal/models"
	"w3lottery/internal/views"
)

// LotteryAPI is the part of the backend client the lottery service uses.
type LotteryAPI interface {
	ListTypes(ctx context.Context) ([]models.LotteryType, error)
	CreateType(ctx context.Context, req models.LotteryTypeRequest) (*models.LotteryType, error)
	ListLotteries(ctx context.Context, p api.LotteryParams) (*models.LotteryPage, error)
	CreateLottery(ctx context.Context, req models.LotteryRequest) (*models.Lottery, error)
	ListIssues(ctx context.Context, p api.IssueParams) (*models.IssuePage, error)
	CreateIssue(ctx context.Context, req models.LotteryIssueRequest) (*models.LotteryIssue, error)
	ListTickets(ctx context.Context, p api.TicketParams) (*models.TicketPage, error)
	BuyTicket(ctx context.Context, req models.BuyTicketRequest) (*models.LotteryTicket, error)
	ListWinners(ctx context.Context, p api.WinnerParams) (*models.WinnerPage, error)
	Draw(ctx context.Context, issueID string) (int, error)
	PrizePool(ctx context.Context) (decimal.Decimal, error)
	LatestResults(ctx context.Context) ([]models.LatestResult, error)
	RecentWinners(ctx context.Context) ([]models.RecentWinner, error)
}

// TTLs are the cache lifetimes of the lottery resources.
type TTLs struct {
	Lotteries     time.Duration
	Results       time.Duration
	PastDraws     time.Duration
	RecentWinners time.Duration
	PrizePool     time.Duration
	Tickets       time.Duration
	Types         time.Duration
	Issues        time.Duration
}

// DefaultTTLs returns the stock lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Lotteries:     5 * time.Minute,
		Results:       10 * time.Minute,
		PastDraws:     30 * time.Minute,
		RecentWinners: 15 * time.Minute,
		PrizePool:     5 * time.Minute,
		Tickets:       2 * time.Minute,
		Types:         time.Hour,
		Issues:        5 * time.Minute,
	}
}

const (
	// issueLookups bounds concurrent current-issue queries.
	issueLookups = 4
	// listPageSize is requested from list endpoints that feed a cache.
	listPageSize = 100
)

// Result group keys.
const (
	GroupWeekly  = "weekly"
	GroupDaily   = "daily"
	GroupMonthly = "monthly"
)

// AllFilter disables status and type filters.
const AllFilter = "all"

// LotteryService reads lottery data through the cache and performs the
// admin and purchase writes against the backend.
type LotteryService struct {
	api LotteryAPI

	lotteries *cache.Resource[[]views.Lottery]
	results   *cache.Resource[map[string]views.Result]
	pastDraws *cache.Resource[[]views.Result]
	winners   *cache.Resource[[]views.Winner]
	prizePool *cache.Resource[decimal.Decimal]
	types     *cache.Resource[[]models.LotteryType]
	issues    *cache.Resource[[]models.LotteryIssue]
	tickets   *cache.Loader[[]views.Ticket]
}

// NewLotteryService creates and initializes a new LotteryService.
func NewLotteryService(client LotteryAPI, store cache.Store, ttl TTLs) *LotteryService {
	s := &LotteryService{api: client}

	s.lotteries = cache.NewResource(store, "lotteries", cache.KeyLotteries, ttl.Lotteries, s.fetchLotteries)
	s.lotteries.TreatAsMiss(cache.EmptySlice[views.Lottery])

	s.results = cache.NewResource(store, "results", cache.KeyResults, ttl.Results, s.fetchResults)
	s.results.TreatAsMiss(cache.EmptyMap[string, views.Result])

	s.pastDraws = cache.NewResource(store, "past_draws", cache.KeyPastDraws, ttl.PastDraws, s.fetchPastDraws)
	s.pastDraws.TreatAsMiss(cache.EmptySlice[views.Result])

	s.winners = cache.NewResource(store, "recent_winners", cache.KeyRecentWinners, ttl.RecentWinners, s.fetchWinners)
	s.winners.TreatAsMiss(cache.EmptySlice[views.Winner])

	s.prizePool = cache.NewResource(store, "prize_pool", cache.KeyPrizePool, ttl.PrizePool, client.PrizePool)

	s.types = cache.NewResource(store, "types", cache.KeyTypes, ttl.Types, client.ListTypes)
	s.types.TreatAsMiss(cache.EmptySlice[models.LotteryType])

	s.issues = cache.NewResource(store, "issues", cache.KeyIssues, ttl.Issues, s.fetchIssues)
	s.issues.TreatAsMiss(cache.EmptySlice[models.LotteryIssue])

	s.tickets = cache.NewLoader[[]views.Ticket](store, "tickets", ttl.Tickets)
	s.tickets.TreatAsMiss(cache.EmptySlice[views.Ticket])

	return s
}

// Lotteries returns every lottery with its current (first PENDING) issue.
func (s *LotteryService) Lotteries(ctx context.Context, force bool) ([]views.Lottery, error) {
	return s.lotteries.Load(ctx, force)
}

func (s *LotteryService) fetchLotteries(ctx context.Context) ([]views.Lottery, error) {
	page, err := s.api.ListLotteries(ctx, api.LotteryParams{})
	if err != nil {
		return nil, err
	}
	if page.Total == 0 || len(page.Lotteries) == 0 {
		return []views.Lottery{}, nil
	}

	out := make([]views.Lottery, len(page.Lotteries))
	var g errgroup.Group
	g.SetLimit(issueLookups)
	for i, l := range page.Lotteries {
		g.Go(func() error {
			issues, err := s.api.ListIssues(ctx, api.IssueParams{LotteryID: l.LotteryID, Status: models.IssuePending})
			if err != nil {
				logger.Warningf("Failed to load current issue of lottery %s: %v", l.LotteryID, err)
				out[i] = views.LotteryFromAPI(l, nil)
				return nil
			}
			var current *models.LotteryIssue
			if len(issues.Issues) > 0 {
				current = &issues.Issues[0]
			}
			out[i] = views.LotteryFromAPI(l, current)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// Lottery returns one lottery from the cached list.
func (s *LotteryService) Lottery(ctx context.Context, id string) (*views.Lottery, error) {
	lotteries, err := s.Lotteries(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range lotteries {
		if lotteries[i].ID == id {
			return &lotteries[i], nil
		}
	}
	return nil, fmt.Errorf("lottery %s: %w", id, models.ErrNotFound)
}

// ResultGroup maps a backend type id to its results tab.
func ResultGroup(typeID string) string {
	switch typeID {
	case "1":
		return GroupWeekly
	case "2":
		return GroupDaily
	default:
		return GroupMonthly
	}
}

// Results returns the latest draw per results tab.
func (s *LotteryService) Results(ctx context.Context, force bool) (map[string]views.Result, error) {
	return s.results.Load(ctx, force)
}

func (s *LotteryService) fetchResults(ctx context.Context) (map[string]views.Result, error) {
	rows, err := s.api.LatestResults(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]views.Result, 3)
	for _, r := range rows {
		out[ResultGroup(r.TypeID)] = views.LatestFromAPI(r)
	}
	return out, nil
}

// PastDraws returns drawn issues that have winning numbers, optionally
// restricted to one lottery type name.
func (s *LotteryService) PastDraws(ctx context.Context, force bool, typeName string) ([]views.Result, error) {
	draws, err := s.pastDraws.Load(ctx, force)
	if err != nil {
		return nil, err
	}
	if typeName == "" || strings.EqualFold(typeName, AllFilter) {
		return draws, nil
	}
	out := make([]views.Result, 0, len(draws))
	for _, d := range draws {
		if strings.EqualFold(d.TypeName, typeName) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *LotteryService) fetchPastDraws(ctx context.Context) ([]views.Result, error) {
	issues, err := s.api.ListIssues(ctx, api.IssueParams{
		Status:     models.IssueDrawn,
		PageParams: api.PageParams{Page: 1, PageSize: listPageSize},
	})
	if err != nil {
		return nil, err
	}
	if issues.Total == 0 || len(issues.Issues) == 0 {
		return []views.Result{}, nil
	}

	lotteries, err := s.api.ListLotteries(ctx, api.LotteryParams{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Lottery, len(lotteries.Lotteries))
	for i := range lotteries.Lotteries {
		byID[lotteries.Lotteries[i].LotteryID] = &lotteries.Lotteries[i]
	}

	out := make([]views.Result, 0, len(issues.Issues))
	for _, issue := range issues.Issues {
		if issue.WinningNumbers == "" {
			continue
		}
		l := byID[issue.LotteryID]
		var typ *models.LotteryType
		if l != nil {
			typ = l.LotteryType
		}
		out = append(out, views.ResultFromIssue(issue, l, typ))
	}
	return out, nil
}

// RecentWinners returns the latest winners. Backends without the v2 winners
// route are served from the v1 summary.
func (s *LotteryService) RecentWinners(ctx context.Context, force bool) ([]views.Winner, error) {
	return s.winners.Load(ctx, force)
}

func (s *LotteryService) fetchWinners(ctx context.Context) ([]views.Winner, error) {
	page, err := s.api.ListWinners(ctx, api.WinnerParams{PageParams: api.PageParams{Page: 1, PageSize: 20}})
	if errors.Is(err, models.ErrNotFound) {
		rows, err := s.api.RecentWinners(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]views.Winner, len(rows))
		for i, r := range rows {
			out[i] = views.WinnerFromSummary(r)
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]views.Winner, len(page.Winners))
	for i, w := range page.Winners {
		out[i] = views.WinnerFromAPI(w)
	}
	return out, nil
}

// PrizePool returns the total pool.
func (s *LotteryService) PrizePool(ctx context.Context, force bool) (decimal.Decimal, error) {
	return s.prizePool.Load(ctx, force)
}

// Types returns the lottery types.
func (s *LotteryService) Types(ctx context.Context, force bool) ([]models.LotteryType, error) {
	return s.types.Load(ctx, force)
}

// Issues returns every issue known to the backend.
func (s *LotteryService) Issues(ctx context.Context, force bool) ([]models.LotteryIssue, error) {
	return s.issues.Load(ctx, force)
}

func (s *LotteryService) fetchIssues(ctx context.Context) ([]models.LotteryIssue, error) {
	page, err := s.api.ListIssues(ctx, api.IssueParams{})
	if err != nil {
		return nil, err
	}
	if page.Issues == nil {
		return []models.LotteryIssue{}, nil
	}
	return page.Issues, nil
}

// Tickets returns the purchases of address joined to their issue and
// lottery, filtered by issue status or ticket outcome. No address means no
// tickets.
func (s *LotteryService) Tickets(ctx context.Context, address string, force bool, status string) ([]views.Ticket, error) {
	if address == "" {
		return []views.Ticket{}, nil
	}
	tickets, err := s.tickets.Load(ctx, cache.TicketsKey(address), force, func(ctx context.Context) ([]views.Ticket, error) {
		return s.fetchTickets(ctx, address, force)
	})
	if err != nil {
		return nil, err
	}
	if status == "" || strings.EqualFold(status, AllFilter) {
		return tickets, nil
	}
	out := make([]views.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if strings.EqualFold(t.Status, status) || strings.EqualFold(t.Outcome, status) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *LotteryService) fetchTickets(ctx context.Context, address string, force bool) ([]views.Ticket, error) {
	page, err := s.api.ListTickets(ctx, api.TicketParams{
		BuyerAddress: address,
		PageParams:   api.PageParams{Page: 1, PageSize: listPageSize},
	})
	if err != nil {
		return nil, err
	}
	if page.Total == 0 || len(page.Tickets) == 0 {
		return []views.Ticket{}, nil
	}

	lotteries, err := s.api.ListLotteries(ctx, api.LotteryParams{})
	if err != nil {
		return nil, err
	}
	issues, err := s.Issues(ctx, force)
	if err != nil {
		return nil, err
	}

	out := make([]views.Ticket, len(page.Tickets))
	for i, t := range page.Tickets {
		out[i] = views.TicketFromAPI(t, lotteries.Lotteries, issues)
	}
	return out, nil
}

// CreateType creates a lottery type.
func (s *LotteryService) CreateType(ctx context.Context, name, description string) (*models.LotteryType, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.Invalid("type_name", "is required")
	}
	t, err := s.api.CreateType(ctx, models.LotteryTypeRequest{TypeName: name, Description: description})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.types.Invalidate)
	return t, nil
}

// CreateLottery creates a lottery. When first is non-nil an initial issue is
// created for it as well.
func (s *LotteryService) CreateLottery(ctx context.Context, req models.LotteryRequest, first *models.LotteryIssueRequest) (*models.Lottery, error) {
	switch {
	case req.TypeID == "":
		return nil, models.Invalid("type_id", "is required")
	case strings.TrimSpace(req.TicketName) == "":
		return nil, models.Invalid("ticket_name", "is required")
	case !req.TicketPrice.IsPositive():
		return nil, models.Invalid("ticket_price", "must be positive")
	case req.TicketSupply <= 0:
		return nil, models.Invalid("ticket_supply", "must be positive")
	}

	l, err := s.api.CreateLottery(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.lotteries.Invalidate)

	if first != nil {
		if _, err := s.CreateIssue(ctx, l.LotteryID, first.IssueNumber, first.SaleEndTime, first.DrawTime); err != nil {
			return l, fmt.Errorf("lottery created, first issue failed: %w", err)
		}
	}
	return l, nil
}

// CreateIssue creates a PENDING issue.
func (s *LotteryService) CreateIssue(ctx context.Context, lotteryID, number, saleEnd, drawTime string) (*models.LotteryIssue, error) {
	switch {
	case lotteryID == "":
		return nil, models.Invalid("lottery_id", "is required")
	case strings.TrimSpace(number) == "":
		return nil, models.Invalid("issue_number", "is required")
	}
	saleEnd, err := normalizeTime("sale_end_time", saleEnd)
	if err != nil {
		return nil, err
	}
	if drawTime != "" {
		if drawTime, err = normalizeTime("draw_time", drawTime); err != nil {
			return nil, err
		}
	}

	issue, err := s.api.CreateIssue(ctx, models.LotteryIssueRequest{
		LotteryID:   lotteryID,
		IssueNumber: number,
		SaleEndTime: saleEnd,
		DrawTime:    drawTime,
		Status:      models.IssuePending,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.lotteries.Invalidate, s.issues.Invalidate)
	return issue, nil
}

// normalizeTime accepts form and CSV inputs and renders them as RFC 3339.
func normalizeTime(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", models.Invalid(field, "is required")
	}
	if t, ok := views.ParseTime(v); ok {
		return t.UTC().Format(time.RFC3339), nil
	}
	// datetime-local inputs omit seconds
	if t, err := time.Parse("2006-01-02T15:04", v); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	return "", models.Invalid(field, "unrecognised time %q", v)
}

// ImportResult reports the outcome of a CSV issue import.
type ImportResult struct {
	Created int
	Skipped int
}

// ImportIssues creates one issue per CSV row of the form
// lottery_id,issue_number,sale_end_time[,draw_time]. Malformed rows and rows
// the backend rejects are skipped. A header row is skipped too.
func (s *LotteryService) ImportIssues(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}

		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimPrefix(record[0], "\ufeff"), "lottery_id") {
			continue
		}
		if len(record) != 3 && len(record) != 4 {
			logger.Infof("Skipping malformed issue CSV record on line %d: %v", line, record)
			res.Skipped++
			continue
		}

		drawTime := ""
		if len(record) == 4 {
			drawTime = record[3]
		}
		if _, err := s.CreateIssue(ctx, record[0], record[1], record[2], drawTime); err != nil {
			if errors.Is(err, models.ErrUnauthorized) {
				return res, err
			}
			logger.Infof("Skipping issue CSV record on line %d: %v", line, err)
			res.Skipped++
			continue
		}
		res.Created++
	}
	return res, nil
}

// ExecuteDraw draws an issue and returns the backend status code.
func (s *LotteryService) ExecuteDraw(ctx context.Context, issueID string) (int, error) {
	if issueID == "" {
		return 0, models.Invalid("issue_id", "is required")
	}
	status, err := s.api.Draw(ctx, issueID)
	if err != nil {
		return status, err
	}
	if status == http.StatusOK {
		s.invalidate(ctx, s.issues.Invalidate, s.pastDraws.Invalidate, s.results.Invalidate)
	}
	return status, nil
}

// Rules constrain a bet.
type Rules struct {
	MaxNumbers  int
	NumberRange int
}

// BetRules returns the rules for a lottery. The free text betting rules are
// not machine readable, so every lottery is a 3 of 36 bet.
func BetRules(string) Rules {
	return Rules{MaxNumbers: 3, NumberRange: 36}
}

// Validate checks a selection against r.
func (r Rules) Validate(numbers []int) error {
	if len(numbers) != r.MaxNumbers {
		return models.Invalid("numbers", "select exactly %d numbers", r.MaxNumbers)
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > r.NumberRange {
			return models.Invalid("numbers", "%d is outside 1-%d", n, r.NumberRange)
		}
		if seen[n] {
			return models.Invalid("numbers", "%d selected twice", n)
		}
		seen[n] = true
	}
	return nil
}

// QuickPick returns a valid random selection, sorted ascending.
func QuickPick(r Rules, rng *rand.Rand) []int {
	picked := rng.Perm(r.NumberRange)[:r.MaxNumbers]
	out := make([]int, len(picked))
	for i, n := range picked {
		out[i] = n + 1
	}
	slices.Sort(out)
	return out
}

// PurchaseRequest is a ticket order from the buy page.
type PurchaseRequest struct {
	LotteryID string
	Address   string
	Numbers   []int
	Count     int
}

// Purchase validates and places an order for the lottery's current issue.
func (s *LotteryService) Purchase(ctx context.Context, req PurchaseRequest) (*models.LotteryTicket, error) {
	if req.Address == "" {
		return nil, models.Invalid("address", "connect a wallet first")
	}
	if req.Count < 1 {
		return nil, models.Invalid("count", "must be at least 1")
	}

	l, err := s.Lottery(ctx, req.LotteryID)
	if err != nil {
		return nil, err
	}
	if err := BetRules(l.BettingRules).Validate(req.Numbers); err != nil {
		return nil, err
	}
	if l.Issue == nil || l.Issue.ID == "" {
		return nil, fmt.Errorf("lottery %s: %w", l.ID, models.ErrNoActiveIssue)
	}

	bet := slices.Clone(req.Numbers)
	slices.Sort(bet)

	ticket, err := s.api.BuyTicket(ctx, models.BuyTicketRequest{
		IssueID:        l.Issue.ID,
		BuyerAddress:   req.Address,
		PurchaseAmount: l.Price.Mul(decimal.NewFromInt(int64(req.Count))),
		BetContent:     models.JoinNumbers(bet),
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Ticket purchased: lottery=%s issue=%s buyer=%s count=%d", l.ID, l.Issue.ID, req.Address, req.Count)
	s.invalidate(ctx,
		func(ctx context.Context) error { return s.tickets.Invalidate(ctx, cache.TicketsKey(req.Address)) },
		s.prizePool.Invalidate,
	)
	return ticket, nil
}

// invalidate runs each invalidation and logs failures. A stale entry only
// delays freshness until its TTL, so writes still succeed.
func (s *LotteryService) invalidate(ctx context.Context, fns ...func(context.Context) error) {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			logger.Warningf("Cache invalidation failed: %v", err)
		}
	}
}

// ExportTicketsCSV writes the purchase history with a UTF-8 BOM so that
// spreadsheet tools detect the encoding.
func ExportTicketsCSV(w io.Writer, tickets []views.Ticket) error {
	rows := make([][]string, len(tickets))
	for i, t := range tickets {
		rows[i] = []string{t.ID, t.LotteryName, t.LotteryType, t.IssueNumber, t.PurchaseTime, t.BetContent, t.PurchaseAmount.String(), t.Status, t.WinningNumbers, t.TransactionHash}
	}
	return writeCSV(w, []string{"ticket_id", "lottery", "type", "issue", "purchase_time", "numbers", "amount", "status", "winning_numbers", "tx_hash"}, rows)
}

// ExportDrawsCSV writes past draws in the same format.
func ExportDrawsCSV(w io.Writer, draws []views.Result) error {
	rows := make([][]string, len(draws))
	for i, d := range draws {
		rows[i] = []string{d.IssueID, d.LotteryName, d.TypeName, d.IssueNumber, d.DrawTime, d.WinningNumbers, d.PrizePool.String()}
	}
	return writeCSV(w, []string{"issue_id", "lottery", "type", "issue", "draw_time", "winning_numbers", "prize_pool"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, "\xef\xbb\xbf"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
