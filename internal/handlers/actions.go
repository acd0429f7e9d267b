package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/shopspring/decimal"

	"w3lottery/internal/access"
	"w3lottery/internal/i18n"
	"w3lottery/internal/models"
	"w3lottery/internal/services"
)

// adminChanged is the HX-Trigger event admin tables listen for.
const adminChanged = "adminChanged"

// ConnectRequest is the body of POST /wallet/connect.
type ConnectRequest struct {
	Address    string `json:"address" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
	WalletType string `json:"wallet_type"`
}

// WalletChallenge returns the message the wallet must sign.
func (h *HTTPHandler) WalletChallenge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": h.wallets.Challenge(sessionID(c))})
}

// WalletConnect verifies the signed challenge and connects the wallet.
func (h *HTTPHandler) WalletConnect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	state, err := h.wallets.Connect(ctx, sessionID(c), req.WalletType, req.Address, req.Signature)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrBadSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrNoChallenge):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		logger.Errorf("Wallet connect failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.users.State(ctx, state, true); err != nil {
		logger.Warningf("Failed to load user state after connect: %v", err)
	}
	c.JSON(http.StatusOK, state)
}

// WalletDisconnect forgets the session's wallet.
func (h *HTTPHandler) WalletDisconnect(c *gin.Context) {
	if err := h.wallets.Disconnect(c.Request.Context(), sessionID(c)); err != nil {
		logger.Errorf("Wallet disconnect failed: %v", err)
		c.String(http.StatusInternalServerError, "Disconnect failed")
		return
	}
	redirectHome(c)
}

// SetLanguage stores the chosen language and reloads the page.
func (h *HTTPHandler) SetLanguage(c *gin.Context) {
	l := c.PostForm("lang")
	if !i18n.Supported(l) {
		c.String(http.StatusBadRequest, "Unsupported language %q", l)
		return
	}
	c.SetCookie(i18n.Cookie, l, 365*24*60*60, "/", "", h.opts.SecureCookie, false)
	if isHTMX(c) {
		c.Header("HX-Refresh", "true")
		c.Status(http.StatusNoContent)
		return
	}
	back := c.GetHeader("Referer")
	if back == "" {
		back = "/"
	}
	c.Redirect(http.StatusSeeOther, back)
}

// QuickPick returns the buy form with a random valid selection.
func (h *HTTPHandler) QuickPick(c *gin.Context) {
	form := BuyForm{LotteryID: c.Query("id")}
	form.Count, _ = strconv.Atoi(c.Query("count"))

	data, err := h.buyData(c, form)
	if err != nil {
		h.failAction(c, "quick pick", err)
		return
	}
	rules, ok := data["Rules"].(services.Rules)
	if !ok {
		h.notice(c, http.StatusNotFound, "error", i18n.T(lang(c), "lottery.noIssue", nil))
		return
	}
	form.Numbers = services.QuickPick(rules, rand.New(rand.NewSource(h.now().UnixNano())))

	if data, err = h.buyData(c, form); err != nil {
		h.failAction(c, "quick pick", err)
		return
	}
	h.renderPartial(c, http.StatusOK, "buy_form", data)
}

// BuySummary re-renders the ticket summary for the current selection.
func (h *HTTPHandler) BuySummary(c *gin.Context) {
	var form BuyForm
	if err := c.ShouldBindQuery(&form); err != nil {
		c.String(http.StatusBadRequest, "Invalid selection: %v", err)
		return
	}
	data, err := h.buyData(c, form)
	if err != nil {
		h.failAction(c, "buy summary", err)
		return
	}
	h.renderPartial(c, http.StatusOK, "buy_summary", data)
}

// Buy handles the ticket order form.
func (h *HTTPHandler) Buy(c *gin.Context) {
	var form BuyForm
	if err := c.ShouldBind(&form); err != nil {
		h.notice(c, http.StatusBadRequest, "error", err.Error())
		return
	}

	ctx := c.Request.Context()
	ticket, err := h.lottery.Purchase(ctx, services.PurchaseRequest{
		LotteryID: form.LotteryID,
		Address:   access.State(c).Address,
		Numbers:   form.Numbers,
		Count:     form.Count,
	})
	if err != nil {
		h.failAction(c, "purchase", err)
		return
	}

	issue := ticket.IssueID
	if l, err := h.lottery.Lottery(ctx, form.LotteryID); err == nil && l.Issue != nil {
		issue = l.Issue.Number
	}
	h.notice(c, http.StatusOK, "success", i18n.T(lang(c), "buy.success", i18n.Pairs("issue", issue)))
}

// SubmitKYC handles the registration form.
func (h *HTTPHandler) SubmitKYC(c *gin.Context) {
	var form services.KycForm
	if err := c.ShouldBind(&form); err != nil {
		h.notice(c, http.StatusBadRequest, "error", err.Error())
		return
	}

	var photo *services.Photo
	if fh, err := c.FormFile("id_photo"); err == nil {
		file, err := fh.Open()
		if err != nil {
			c.String(http.StatusBadRequest, "Error retrieving file: %v", err)
			return
		}
		defer file.Close()
		photo = &services.Photo{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        file,
		}
	}

	st := access.State(c)
	err := h.users.RegisterKYC(c.Request.Context(), st.Address, form, photo)
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderPartial(c, http.StatusBadRequest, "kyc_form", gin.H{
			"Lang":           lang(c),
			"Form":           form,
			"SourcesOfFunds": SourcesOfFunds,
			"Errors":         map[string]string{verr.Field: verr.Message},
		})
		return
	case err != nil:
		h.failAction(c, "register kyc", err)
		return
	}

	if _, err := h.users.State(c.Request.Context(), models.WalletState{IsConnected: true, Address: st.Address}, true); err != nil {
		logger.Warningf("Failed to reload user state of %s: %v", st.Address, err)
	}
	h.renderPartial(c, http.StatusOK, "kyc_status", gin.H{"Lang": lang(c), "KycStatus": "kyc.submitted"})
}

// CreateType handles the new lottery type form.
func (h *HTTPHandler) CreateType(c *gin.Context) {
	t, err := h.lottery.CreateType(c.Request.Context(), c.PostForm("type_name"), c.PostForm("description"))
	if err != nil {
		h.failAction(c, "create type", err)
		return
	}
	logger.Infof("Lottery type created: %s", t.TypeID)
	h.adminDone(c, i18n.T(lang(c), "admin.created", nil))
}

// LotteryForm is the new lottery form. The first issue fields are optional.
type LotteryForm struct {
	TypeID                 string `form:"type_id"`
	TicketName             string `form:"ticket_name"`
	TicketPrice            string `form:"ticket_price"`
	TicketSupply           int    `form:"ticket_supply"`
	BettingRules           string `form:"betting_rules"`
	PrizeStructure         string `form:"prize_structure"`
	RegisteredAddr         string `form:"registered_addr"`
	RolloutContractAddress string `form:"rollout_contract_address"`
	FirstIssueNumber       string `form:"first_issue_number"`
	FirstSaleEndTime       string `form:"first_sale_end_time"`
	FirstDrawTime          string `form:"first_draw_time"`
}

// CreateLottery handles the new lottery form.
func (h *HTTPHandler) CreateLottery(c *gin.Context) {
	var form LotteryForm
	if err := c.ShouldBind(&form); err != nil {
		h.notice(c, http.StatusBadRequest, "error", err.Error())
		return
	}
	price, err := decimal.NewFromString(form.TicketPrice)
	if err != nil {
		h.failAction(c, "create lottery", models.Invalid("ticket_price", "%q is not a number", form.TicketPrice))
		return
	}

	var first *models.LotteryIssueRequest
	if form.FirstIssueNumber != "" {
		first = &models.LotteryIssueRequest{
			IssueNumber: form.FirstIssueNumber,
			SaleEndTime: form.FirstSaleEndTime,
			DrawTime:    form.FirstDrawTime,
		}
	}

	l, err := h.lottery.CreateLottery(c.Request.Context(), models.LotteryRequest{
		TypeID:                 form.TypeID,
		TicketName:             form.TicketName,
		TicketPrice:            price,
		TicketSupply:           form.TicketSupply,
		BettingRules:           form.BettingRules,
		PrizeStructure:         form.PrizeStructure,
		RegisteredAddr:         form.RegisteredAddr,
		RolloutContractAddress: form.RolloutContractAddress,
	}, first)
	if err != nil {
		if l != nil {
			c.Header("HX-Trigger", adminChanged)
		}
		h.failAction(c, "create lottery", err)
		return
	}
	logger.Infof("Lottery created: %s", l.LotteryID)
	h.adminDone(c, i18n.T(lang(c), "admin.created", nil))
}

// CreateIssue handles the new issue form.
func (h *HTTPHandler) CreateIssue(c *gin.Context) {
	issue, err := h.lottery.CreateIssue(c.Request.Context(),
		c.PostForm("lottery_id"),
		c.PostForm("issue_number"),
		c.PostForm("sale_end_time"),
		c.PostForm("draw_time"),
	)
	if err != nil {
		h.failAction(c, "create issue", err)
		return
	}
	logger.Infof("Issue created: %s", issue.IssueID)
	h.adminDone(c, i18n.T(lang(c), "admin.created", nil))
}

// ImportIssues handles the CSV upload for issues.
func (h *HTTPHandler) ImportIssues(c *gin.Context) {
	file, _, err := c.Request.FormFile("issuesCSV")
	if err != nil {
		c.String(http.StatusBadRequest, "Error retrieving file: %v", err)
		return
	}
	defer file.Close()

	res, err := h.lottery.ImportIssues(c.Request.Context(), file)
	if err != nil {
		if res.Created > 0 {
			c.Header("HX-Trigger", adminChanged)
		}
		h.failAction(c, "import issues", err)
		return
	}
	h.adminDone(c, i18n.T(lang(c), "admin.imported", i18n.Pairs("created", res.Created, "skipped", res.Skipped)))
}

// Draw handles the request to draw an issue.
func (h *HTTPHandler) Draw(c *gin.Context) {
	issueID := c.PostForm("issue_id")
	if issueID == "" {
		c.String(http.StatusBadRequest, "Please select an issue.")
		return
	}
	status, err := h.lottery.ExecuteDraw(c.Request.Context(), issueID)
	if err != nil {
		h.failAction(c, "draw", err)
		return
	}
	msg := i18n.T(lang(c), "admin.drawDone", i18n.Pairs("issue", issueID, "status", status))
	if status != http.StatusOK {
		h.notice(c, http.StatusBadGateway, "error", msg)
		return
	}
	h.adminDone(c, msg)
}

func (h *HTTPHandler) adminDone(c *gin.Context, msg string) {
	c.Header("HX-Trigger", adminChanged)
	h.notice(c, http.StatusOK, "success", msg)
}

// ExportTicketsCSV handles the request to download the purchase history.
func (h *HTTPHandler) ExportTicketsCSV(c *gin.Context) {
	tickets, err := h.lottery.Tickets(c.Request.Context(), access.State(c).Address, false, c.DefaultQuery("status", services.AllFilter))
	if err != nil {
		h.failAction(c, "export tickets", err)
		return
	}
	h.sendCSV(c, "tickets", func(c *gin.Context) error { return services.ExportTicketsCSV(c.Writer, tickets) })
}

// ExportDrawsCSV handles the request to download the past draws.
func (h *HTTPHandler) ExportDrawsCSV(c *gin.Context) {
	draws, err := h.lottery.PastDraws(c.Request.Context(), false, c.DefaultQuery("type", services.AllFilter))
	if err != nil {
		h.failAction(c, "export draws", err)
		return
	}
	h.sendCSV(c, "past_draws", func(c *gin.Context) error { return services.ExportDrawsCSV(c.Writer, draws) })
}

func (h *HTTPHandler) sendCSV(c *gin.Context, name string, write func(*gin.Context) error) {
	filename := name + "_" + h.now().Format("20060102") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment;filename="+filename)
	c.Status(http.StatusOK)
	if err := write(c); err != nil {
		logger.Infof("Error writing CSV %s: %v", filename, err)
	}
}
