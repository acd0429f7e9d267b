// Package views projects backend records into the rows the templates render.
package views

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"w3lottery/internal/models"
)

// Placeholders shown when a related record is missing.
const (
	NotAvailable   = "N/A"
	NotDrawn       = "Not drawn"
	Unknown        = "Unknown"
	UnknownLottery = "Unknown lottery"
	UnknownType    = "Unknown type"
	UnknownIssue   = "Unknown issue"
	UnknownStatus  = "Unknown status"
)

// Ticket outcomes, as shown on the history tabs.
const (
	OutcomeActive = "Active"
	OutcomeWon    = "Won"
	OutcomeLost   = "Lost"
)

// DateLayout is how every timestamp is displayed.
const DateLayout = "2006-01-02 15:04"

var location atomic.Pointer[time.Location]

func init() { location.Store(time.Local) }

// SetLocation sets the zone dates are displayed in.
func SetLocation(loc *time.Location) {
	if loc != nil {
		location.Store(loc)
	}
}

var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the backend emits.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders s as DateLayout, or N/A for junk and pre-1970 dates.
func FormatDate(s string) string {
	t, ok := ParseTime(s)
	if !ok || t.Year() < 1970 {
		return NotAvailable
	}
	return t.In(location.Load()).Format(DateLayout)
}

func drawTime(issue *models.LotteryIssue) string {
	if d := FormatDate(issue.DrawTime); d != NotAvailable {
		return d
	}
	return FormatDate(issue.SaleEndTime)
}

func orElse(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Issue is the current issue of a lottery.
type Issue struct {
	ID             string
	Number         string
	SaleEndTime    string
	DrawTime       string
	Status         models.IssueStatus
	PrizePool      decimal.Decimal
	WinningNumbers string
}

// Lottery is a lottery card with its current issue, if any.
type Lottery struct {
	ID                     string
	Name                   string
	Type                   string
	TypeID                 string
	Price                  decimal.Decimal
	Supply                 int
	BettingRules           string
	PrizeStructure         string
	ContractAddress        string
	RegisteredAddress      string
	RolloutContractAddress string
	CreatedAt              string
	Issue                  *Issue
}

func LotteryFromAPI(l models.Lottery, issue *models.LotteryIssue) Lottery {
	out := Lottery{
		ID:                     l.LotteryID,
		Name:                   l.TicketName,
		Type:                   UnknownType,
		TypeID:                 l.TypeID,
		Price:                  l.TicketPrice,
		Supply:                 l.TicketSupply,
		BettingRules:           l.BettingRules,
		PrizeStructure:         l.PrizeStructure,
		ContractAddress:        l.ContractAddress,
		RegisteredAddress:      l.RegisteredAddr,
		RolloutContractAddress: l.RolloutContractAddress,
		CreatedAt:              FormatDate(l.CreatedAt),
	}
	if l.LotteryType != nil && l.LotteryType.TypeName != "" {
		out.Type = l.LotteryType.TypeName
	}
	if issue != nil {
		out.Issue = &Issue{
			ID:             issue.IssueID,
			Number:         issue.IssueNumber,
			SaleEndTime:    FormatDate(issue.SaleEndTime),
			DrawTime:       drawTime(issue),
			Status:         issue.Status,
			PrizePool:      issue.PrizePool,
			WinningNumbers: orElse(issue.WinningNumbers, NotDrawn),
		}
	}
	return out
}

// Ticket is a purchase history row.
type Ticket struct {
	ID              string
	IssueID         string
	LotteryName     string
	LotteryType     string
	IssueNumber     string
	BuyerAddress    string
	PurchaseTime    string
	BetContent      string
	PurchaseAmount  decimal.Decimal
	TransactionHash string
	Status          string
	Outcome         string
	WinningNumbers  string
}

// TicketFromAPI joins a ticket to its issue and lottery from the given lists.
func TicketFromAPI(t models.LotteryTicket, lotteries []models.Lottery, issues []models.LotteryIssue) Ticket {
	var issue *models.LotteryIssue
	for i := range issues {
		if issues[i].IssueID == t.IssueID {
			issue = &issues[i]
			break
		}
	}
	var lottery *models.Lottery
	if issue != nil {
		for i := range lotteries {
			if lotteries[i].LotteryID == issue.LotteryID {
				lottery = &lotteries[i]
				break
			}
		}
	}

	out := Ticket{
		ID:              t.TicketID,
		IssueID:         t.IssueID,
		LotteryName:     UnknownLottery,
		LotteryType:     UnknownType,
		IssueNumber:     UnknownIssue,
		BuyerAddress:    t.BuyerAddress,
		PurchaseTime:    FormatDate(t.PurchaseTime),
		BetContent:      t.BetContent,
		PurchaseAmount:  t.PurchaseAmount,
		TransactionHash: t.TransactionHash,
		Status:          UnknownStatus,
		Outcome:         OutcomeActive,
		WinningNumbers:  NotDrawn,
	}
	if issue != nil {
		out.IssueNumber = orElse(issue.IssueNumber, UnknownIssue)
		out.Status = orElse(string(issue.Status), UnknownStatus)
		out.WinningNumbers = orElse(issue.WinningNumbers, NotDrawn)
		out.Outcome = outcome(t.BetContent, issue)
	}
	if lottery != nil {
		out.LotteryName = orElse(lottery.TicketName, UnknownLottery)
		if lottery.LotteryType != nil {
			out.LotteryType = orElse(lottery.LotteryType.TypeName, UnknownType)
		}
	}
	return out
}

// outcome compares a bet with the issue's winning numbers. Undrawn issues
// are still active.
func outcome(bet string, issue *models.LotteryIssue) string {
	won := issue.Numbers()
	if issue.Status != models.IssueDrawn || len(won) == 0 {
		return OutcomeActive
	}
	picked := models.ParseNumbers(bet)
	if len(picked) != len(won) {
		return OutcomeLost
	}
	set := make(map[int]bool, len(won))
	for _, n := range won {
		set[n] = true
	}
	for _, n := range picked {
		if !set[n] {
			return OutcomeLost
		}
	}
	return OutcomeWon
}

// Winner is a winners list row.
type Winner struct {
	ID             string
	IssueID        string
	TicketID       string
	LotteryName    string
	LotteryType    string
	IssueNumber    string
	WinnerAddress  string
	PrizeLevel     string
	PrizeAmount    decimal.Decimal
	ClaimTxHash    string
	CreatedAt      string
	WinningNumbers string
	BetContent     string
}

func WinnerFromAPI(w models.LotteryWinner) Winner {
	out := Winner{
		ID:             w.WinnerID,
		IssueID:        w.IssueID,
		TicketID:       w.TicketID,
		LotteryName:    UnknownLottery,
		LotteryType:    UnknownType,
		IssueNumber:    UnknownIssue,
		WinnerAddress:  w.Address,
		PrizeLevel:     w.PrizeLevel,
		PrizeAmount:    w.PrizeAmount,
		ClaimTxHash:    w.ClaimTxHash,
		CreatedAt:      FormatDate(w.CreatedAt),
		WinningNumbers: Unknown,
		BetContent:     Unknown,
	}
	if issue := w.LotteryIssue; issue != nil {
		out.IssueNumber = orElse(issue.IssueNumber, UnknownIssue)
		out.WinningNumbers = orElse(issue.WinningNumbers, Unknown)
		if l := issue.Lottery; l != nil {
			out.LotteryName = orElse(l.TicketName, UnknownLottery)
			if l.LotteryType != nil {
				out.LotteryType = orElse(l.LotteryType.TypeName, UnknownType)
			}
		}
	}
	if w.LotteryTicket != nil {
		out.BetContent = orElse(w.LotteryTicket.BetContent, Unknown)
	}
	return out
}

// Result is a past draw row.
type Result struct {
	IssueID        string
	LotteryID      string
	LotteryName    string
	TypeName       string
	IssueNumber    string
	WinningNumbers string
	DrawTime       string
	PrizePool      decimal.Decimal
	Status         models.IssueStatus
}

// Numbers splits WinningNumbers for ball rendering.
func (r Result) Numbers() []int { return models.ParseNumbers(r.WinningNumbers) }

func ResultFromIssue(issue models.LotteryIssue, lottery *models.Lottery, typ *models.LotteryType) Result {
	out := Result{
		IssueID:        issue.IssueID,
		LotteryID:      issue.LotteryID,
		LotteryName:    UnknownLottery,
		TypeName:       UnknownType,
		IssueNumber:    issue.IssueNumber,
		WinningNumbers: orElse(issue.WinningNumbers, NotDrawn),
		DrawTime:       drawTime(&issue),
		PrizePool:      issue.PrizePool,
		Status:         issue.Status,
	}
	if lottery != nil {
		out.LotteryName = orElse(lottery.TicketName, UnknownLottery)
	}
	if typ != nil {
		out.TypeName = orElse(typ.TypeName, UnknownType)
	}
	return out
}

// LatestFromAPI projects a latest-draw summary row.
func LatestFromAPI(r models.LatestResult) Result {
	return Result{
		IssueID:        r.IssueID,
		LotteryID:      r.LotteryID,
		LotteryName:    orElse(r.TicketName, UnknownLottery),
		TypeName:       orElse(r.TypeName, UnknownType),
		IssueNumber:    r.IssueNumber,
		WinningNumbers: orElse(r.WinningNumbers, NotDrawn),
		DrawTime:       FormatDate(r.DrawDate),
		Status:         models.IssueDrawn,
	}
}

// WinnerFromSummary projects a row of the v1 recent-winners summary.
// Unparseable amounts render as zero.
func WinnerFromSummary(r models.RecentWinner) Winner {
	amount, _ := decimal.NewFromString(r.WinAmount)
	return Winner{
		IssueID:        r.IssueID,
		LotteryName:    orElse(r.TicketName, UnknownLottery),
		LotteryType:    UnknownType,
		IssueNumber:    orElse(r.IssueNumber, UnknownIssue),
		WinnerAddress:  r.WinnerAddr,
		PrizeAmount:    amount,
		CreatedAt:      FormatDate(r.WinDate),
		WinningNumbers: orElse(r.WinningNumber, Unknown),
		BetContent:     Unknown,
	}
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
