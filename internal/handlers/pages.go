package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/shopspring/decimal"

	"w3lottery/internal/models"
	"w3lottery/internal/services"
	"w3lottery/internal/views"
)

// ShowIndex handles the request for the home page.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	data := h.basePage(c, "nav.home")
	data["Lotteries"] = h.loadSection(c, "lotteries", false)
	data["PrizePool"] = h.loadSection(c, "prize_pool", false)
	data["Winners"] = h.loadSection(c, "recent_winners", false)
	h.renderPage(c, data, "index.html")
}

// ShowResults handles the request for the draw results page.
func (h *HTTPHandler) ShowResults(c *gin.Context) {
	if isHTMX(c) && c.GetHeader("HX-Target") == "sec-past_draws" {
		h.renderPartial(c, http.StatusOK, "section_past_draws", h.loadSection(c, "past_draws", false))
		return
	}
	data := h.basePage(c, "results.title")
	data["Results"] = h.loadSection(c, "results", false)
	data["PastDraws"] = h.loadSection(c, "past_draws", false)
	h.renderPage(c, data, "results.html")
}

// BuyForm is the ticket order form.
type BuyForm struct {
	LotteryID string `form:"id"`
	Numbers   []int  `form:"numbers"`
	Count     int    `form:"count"`
}

// buyData is shared by the buy page and its partials.
func (h *HTTPHandler) buyData(c *gin.Context, form BuyForm) (gin.H, error) {
	lotteries, err := h.lottery.Lotteries(c.Request.Context(), false)
	if err != nil {
		return nil, err
	}

	var selected *views.Lottery
	for i := range lotteries {
		if lotteries[i].ID == form.LotteryID {
			selected = &lotteries[i]
			break
		}
	}
	if selected == nil && len(lotteries) > 0 {
		selected = &lotteries[0]
	}
	if form.Count < 1 {
		form.Count = 1
	}

	data := gin.H{
		"Lang":      lang(c),
		"Lotteries": lotteries,
		"Selected":  selected,
		"Numbers":   form.Numbers,
		"Count":     form.Count,
	}
	if selected != nil {
		rules := services.BetRules(selected.BettingRules)
		data["Rules"] = rules
		data["Total"] = selected.Price.Mul(decimal.NewFromInt(int64(form.Count)))
		data["Complete"] = rules.Validate(form.Numbers) == nil
	}
	return data, nil
}

// ShowBuy handles the request for the ticket purchase page.
func (h *HTTPHandler) ShowBuy(c *gin.Context) {
	data := h.basePage(c, "buy.title")
	form := BuyForm{LotteryID: c.Query("id")}
	buy, err := h.buyData(c, form)
	if err != nil {
		if h.expireOn(c, err) {
			redirectHome(c)
			return
		}
		logger.Warningf("Failed to load lotteries for buy page: %v", err)
		data["Buy"] = Section{Resource: "lotteries", Lang: lang(c), Error: err.Error()}
	} else {
		data["Buy"] = Section{Resource: "lotteries", Lang: lang(c), Data: buy}
	}
	h.renderPage(c, data, "buy.html")
}

// ShowHistory handles the request for the purchase history page.
func (h *HTTPHandler) ShowHistory(c *gin.Context) {
	if isHTMX(c) {
		h.renderPartial(c, http.StatusOK, "section_tickets", h.loadSection(c, "tickets", false))
		return
	}
	data := h.basePage(c, "history.title")
	data["Tickets"] = h.loadSection(c, "tickets", false)
	data["Tabs"] = HistoryTabs
	h.renderPage(c, data, "history.html")
}

// ShowKYC handles the request for the identity verification page.
func (h *HTTPHandler) ShowKYC(c *gin.Context) {
	data := h.basePage(c, "kyc.title")
	data["Form"] = services.KycForm{}
	data["Errors"] = map[string]string{}
	data["SourcesOfFunds"] = SourcesOfFunds
	if st, ok := data["User"].(models.UserState); ok {
		data["KycStatus"] = kycStatus(st)
	}
	h.renderPage(c, data, "kyc.html")
}

// SourcesOfFunds are the choices of the KYC form.
var SourcesOfFunds = []string{"Employment", "Investments", "Savings", "Business", "Other"}

// ShowAdminManage handles the request for the lottery management page.
func (h *HTTPHandler) ShowAdminManage(c *gin.Context) {
	data := h.basePage(c, "admin.title")
	data["Lotteries"] = h.loadSection(c, "lotteries", false)
	data["Types"] = h.loadSection(c, "types", false)
	data["Issues"] = h.loadSection(c, "issues", false)
	h.renderPage(c, data, "admin_manage.html")
}

// ShowAdminUsers handles the request for the user management page.
func (h *HTTPHandler) ShowAdminUsers(c *gin.Context) {
	data := h.basePage(c, "admin.users")
	ctx := c.Request.Context()

	all, pending, err := h.users.Customers(ctx)
	if err != nil {
		if h.expireOn(c, err) {
			redirectHome(c)
			return
		}
		logger.Warningf("Failed to load customers: %v", err)
		data["Error"] = err.Error()
	}
	data["Customers"] = all
	data["Pending"] = pending
	data["RoleNames"] = h.roleNames(c)
	h.renderPage(c, data, "admin_users.html")
}

// ShowCustomer handles the request for one customer's KYC details.
func (h *HTTPHandler) ShowCustomer(c *gin.Context) {
	data := h.basePage(c, "admin.details")
	customer, err := h.users.Customer(c.Request.Context(), c.Param("address"))
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.Status(http.StatusNotFound)
		data["Error"] = err.Error()
	case err != nil:
		if h.expireOn(c, err) {
			redirectHome(c)
			return
		}
		logger.Warningf("Failed to load customer %s: %v", c.Param("address"), err)
		data["Error"] = err.Error()
	}
	data["Customer"] = customer
	data["RoleNames"] = h.roleNames(c)
	h.renderPage(c, data, "admin_customer.html")
}

// roleNames maps role ids to names. A failed lookup renders ids only.
func (h *HTTPHandler) roleNames(c *gin.Context) map[int]string {
	roles, err := h.users.Roles(c.Request.Context())
	if err != nil {
		logger.Warningf("Failed to load roles: %v", err)
		return map[int]string{}
	}
	names := make(map[int]string, len(roles))
	for _, r := range roles {
		names[r.RoleID] = r.RoleName
	}
	return names
}

// kycStatus is the state shown on the KYC page for a registered user.
func kycStatus(st models.UserState) string {
	switch {
	case st.IsVerified:
		return "kyc.verified"
	case st.Customer != nil:
		return "kyc.pending"
	default:
		return ""
	}
}

// isHTMX reports whether c came from an HTMX request.
func isHTMX(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("HX-Request"), "true")
}
