package handlers

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"w3lottery/internal/access"
	"w3lottery/internal/services"
	"w3lottery/internal/views"
)

// Section is one independently refreshable block of a page. A failed load
// renders Error with a retry button posting to /refresh/{Resource}.
type Section struct {
	Resource string
	Lang     string
	Data     any
	Error    string
}

// PastDrawsData is the paginated past draws table.
type PastDrawsData struct {
	Rows  []views.Result
	Types []string
	Type  string
	Page  int
	Pages int
}

// TicketsData is the purchase history table.
type TicketsData struct {
	Rows   []views.Ticket
	Status string
	Counts map[string]int
}

// HistoryTabs are the status filters of the purchase history.
var HistoryTabs = []string{services.AllFilter, "active", "won", "lost"}

// sectionTemplates maps refreshable resources to their partial. Resources
// without a partial reload the whole page.
var sectionTemplates = map[string]string{
	"lotteries":      "section_lotteries",
	"results":        "section_results",
	"past_draws":     "section_past_draws",
	"recent_winners": "section_recent_winners",
	"prize_pool":     "section_prize_pool",
	"tickets":        "section_tickets",
	"issues":         "section_issues",
	"types":          "section_types",
}

// loadSection reads one resource for the current request.
func (h *HTTPHandler) loadSection(c *gin.Context, resource string, force bool) Section {
	ctx := c.Request.Context()
	sec := Section{Resource: resource, Lang: lang(c)}

	var err error
	switch resource {
	case "lotteries":
		sec.Data, err = h.lottery.Lotteries(ctx, force)
	case "results":
		sec.Data, err = h.lottery.Results(ctx, force)
	case "past_draws":
		sec.Data, err = h.pastDraws(ctx, c, force)
	case "recent_winners":
		sec.Data, err = h.lottery.RecentWinners(ctx, force)
	case "prize_pool":
		sec.Data, err = h.lottery.PrizePool(ctx, force)
	case "tickets":
		sec.Data, err = h.tickets(ctx, c, force)
	case "issues":
		sec.Data, err = h.lottery.Issues(ctx, force)
	case "types":
		sec.Data, err = h.lottery.Types(ctx, force)
	}
	if err != nil {
		if h.expireOn(c, err) {
			return sec
		}
		logger.Warningf("Failed to load %s: %v", resource, err)
		sec.Error = err.Error()
		sec.Data = nil
	}
	return sec
}

func (h *HTTPHandler) pastDraws(ctx context.Context, c *gin.Context, force bool) (PastDrawsData, error) {
	filter := c.DefaultQuery("type", services.AllFilter)
	all, err := h.lottery.PastDraws(ctx, force, services.AllFilter)
	if err != nil {
		return PastDrawsData{}, err
	}

	var types []string
	rows := make([]views.Result, 0, len(all))
	for _, d := range all {
		if !slices.Contains(types, d.TypeName) {
			types = append(types, d.TypeName)
		}
		if filter == services.AllFilter || strings.EqualFold(d.TypeName, filter) {
			rows = append(rows, d)
		}
	}
	slices.Sort(types)

	page, pages := paginate(len(rows), h.opts.PageSize, c.Query("page"))
	start := (page - 1) * h.opts.PageSize
	end := min(start+h.opts.PageSize, len(rows))
	return PastDrawsData{
		Rows:  rows[start:end],
		Types: types,
		Type:  filter,
		Page:  page,
		Pages: pages,
	}, nil
}

// paginate clamps the requested page to [1, pages]. An empty list has one page.
func paginate(total, size int, requested string) (page, pages int) {
	pages = max(1, (total+size-1)/size)
	page, err := strconv.Atoi(requested)
	if err != nil || page < 1 {
		page = 1
	}
	return min(page, pages), pages
}

func (h *HTTPHandler) tickets(ctx context.Context, c *gin.Context, force bool) (TicketsData, error) {
	status := strings.ToLower(c.DefaultQuery("status", services.AllFilter))
	if !slices.Contains(HistoryTabs, status) {
		status = services.AllFilter
	}
	address := access.State(c).Address
	all, err := h.lottery.Tickets(ctx, address, force, services.AllFilter)
	if err != nil {
		return TicketsData{}, err
	}

	counts := map[string]int{services.AllFilter: len(all)}
	rows := make([]views.Ticket, 0, len(all))
	for _, t := range all {
		tab := strings.ToLower(t.Outcome)
		counts[tab]++
		if status == services.AllFilter || tab == status {
			rows = append(rows, t)
		}
	}
	return TicketsData{Rows: rows, Status: status, Counts: counts}, nil
}

// Refresh force-reloads one cached resource and returns its partial. This
// backs every retry button.
func (h *HTTPHandler) Refresh(c *gin.Context) {
	resource := c.Param("resource")
	if resource == "user" {
		wallet := h.wallets.Status(c.Request.Context(), sessionID(c), true)
		if _, err := h.users.State(c.Request.Context(), wallet, true); err != nil {
			h.failAction(c, "refresh user", err)
			return
		}
		c.Header("HX-Refresh", "true")
		c.Status(http.StatusNoContent)
		return
	}

	name, ok := sectionTemplates[resource]
	if !ok {
		c.String(http.StatusNotFound, "Unknown resource %q", resource)
		return
	}

	sec := h.loadSection(c, resource, true)
	if c.GetBool(ctxExpired) {
		redirectHome(c)
		return
	}
	h.renderPartial(c, http.StatusOK, name, sec)
}
