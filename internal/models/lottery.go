package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IssueStatus is the lifecycle state of a lottery issue as reported by the backend.
type IssueStatus string

const (
	IssuePending IssueStatus = "PENDING"
	IssueOpen    IssueStatus = "OPEN"
	IssueDrawn   IssueStatus = "DRAWN"
)

// LotteryType groups lotteries (daily, weekly, ...).
type LotteryType struct {
	TypeID      string `json:"type_id"`
	TypeName    string `json:"type_name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Lottery is a ticket product. Contract addresses are passed through untouched.
type Lottery struct {
	LotteryID              string          `json:"lottery_id"`
	TypeID                 string          `json:"type_id"`
	TicketName             string          `json:"ticket_name"`
	TicketPrice            decimal.Decimal `json:"ticket_price"`
	TicketSupply           int             `json:"ticket_supply"`
	BettingRules           string          `json:"betting_rules"`
	PrizeStructure         string          `json:"prize_structure"`
	RegisteredAddr         string          `json:"registered_addr"`
	RolloutContractAddress string          `json:"rollout_contract_address"`
	ContractAddress        string          `json:"contract_address"`
	CreatedAt              string          `json:"created_at"`
	UpdatedAt              string          `json:"updated_at"`
	LotteryType            *LotteryType    `json:"LotteryType,omitempty"`
}

// LotteryIssue is one draw cycle of a lottery.
type LotteryIssue struct {
	IssueID        string          `json:"issue_id"`
	LotteryID      string          `json:"lottery_id"`
	IssueNumber    string          `json:"issue_number"`
	SaleEndTime    string          `json:"sale_end_time"`
	DrawTime       string          `json:"draw_time"`
	Status         IssueStatus     `json:"status"`
	PrizePool      decimal.Decimal `json:"prize_pool"`
	WinningNumbers string          `json:"winning_numbers"`
	RandomSeed     string          `json:"random_seed"`
	DrawTxHash     string          `json:"draw_tx_hash"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
	Lottery        *Lottery        `json:"Lottery,omitempty"`
}

// Numbers parses the comma separated winning numbers, skipping blanks and junk.
func (i *LotteryIssue) Numbers() []int {
	return ParseNumbers(i.WinningNumbers)
}

// LotteryTicket is a single purchase made by a buyer for an issue.
type LotteryTicket struct {
	TicketID        string          `json:"ticket_id"`
	IssueID         string          `json:"issue_id"`
	BuyerAddress    string          `json:"buyer_address"`
	PurchaseTime    string          `json:"purchase_time"`
	BetContent      string          `json:"bet_content"`
	PurchaseAmount  decimal.Decimal `json:"purchase_amount"`
	TransactionHash string          `json:"transaction_hash"`
	ClaimTxHash     string          `json:"claim_tx_hash"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// LotteryWinner links a winning ticket to its prize.
type LotteryWinner struct {
	WinnerID      string          `json:"winner_id"`
	IssueID       string          `json:"issue_id"`
	TicketID      string          `json:"ticket_id"`
	Address       string          `json:"address"`
	PrizeLevel    string          `json:"prize_level"`
	PrizeAmount   decimal.Decimal `json:"prize_amount"`
	ClaimTxHash   string          `json:"claim_tx_hash"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
	LotteryIssue  *LotteryIssue   `json:"LotteryIssue,omitempty"`
	LotteryTicket *LotteryTicket  `json:"LotteryTicket,omitempty"`
}

// LatestResult is a row of the latest-draw summary.
type LatestResult struct {
	TypeID         string `json:"type_id"`
	TypeName       string `json:"type_name"`
	LotteryID      string `json:"lottery_id"`
	TicketName     string `json:"ticket_name"`
	IssueID        string `json:"issue_id"`
	IssueNumber    string `json:"issue_number"`
	WinningNumbers string `json:"winning_numbers"`
	DrawDate       string `json:"draw_date"`
}

// RecentWinner is a row of the recent-winners summary.
type RecentWinner struct {
	LotteryID     string `json:"lottery_id"`
	TicketName    string `json:"ticket_name"`
	IssueID       string `json:"issue_id"`
	IssueNumber   string `json:"issue_number"`
	WinningNumber string `json:"winning_number"`
	WinnerAddr    string `json:"winner_addr"`
	WinAmount     string `json:"win_amount"`
	WinDate       string `json:"win_date"`
}

type LotteryTypeRequest struct {
	TypeName    string `json:"type_name"`
	Description string `json:"description"`
}

type LotteryRequest struct {
	TypeID                 string          `json:"type_id"`
	TicketName             string          `json:"ticket_name"`
	TicketPrice            decimal.Decimal `json:"ticket_price"`
	TicketSupply           int             `json:"ticket_supply"`
	BettingRules           string          `json:"betting_rules"`
	PrizeStructure         string          `json:"prize_structure"`
	RegisteredAddr         string          `json:"registered_addr"`
	RolloutContractAddress string          `json:"rollout_contract_address"`
}

type LotteryIssueRequest struct {
	LotteryID   string      `json:"lottery_id"`
	IssueNumber string      `json:"issue_number"`
	SaleEndTime string      `json:"sale_end_time"`
	DrawTime    string      `json:"draw_time"`
	Status      IssueStatus `json:"status"`
}

type BuyTicketRequest struct {
	IssueID        string          `json:"issue_id"`
	BuyerAddress   string          `json:"buyer_address"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	BetContent     string          `json:"bet_content"`
}

// LotteryPage is the paged lottery list.
type LotteryPage struct {
	Lotteries []Lottery `json:"lotteries"`
	Total     int       `json:"total"`
}

// IssuePage is the paged issue list.
type IssuePage struct {
	Issues   []LotteryIssue `json:"issues"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// TicketPage is the paged ticket list. The backend capitalises these keys.
type TicketPage struct {
	Tickets  []LotteryTicket `json:"Tickets"`
	Total    int             `json:"Total"`
	Page     int             `json:"Page"`
	PageSize int             `json:"PageSize"`
}

// WinnerPage is the paged winner list.
type WinnerPage struct {
	Winners  []LotteryWinner `json:"Winners"`
	Total    int             `json:"Total"`
	Page     int             `json:"Page"`
	PageSize int             `json:"PageSize"`
}

// ParseNumbers splits a comma separated bet or draw into integers.
func ParseNumbers(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// JoinNumbers is the inverse of ParseNumbers.
func JoinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
