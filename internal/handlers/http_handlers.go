package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"w3lottery/internal/access"
	"w3lottery/internal/i18n"
	"w3lottery/internal/models"
	"w3lottery/internal/services"
	"w3lottery/internal/views"
)

// LotteryData is the lottery service as the handlers use it.
type LotteryData interface {
	Lotteries(ctx context.Context, force bool) ([]views.Lottery, error)
	Lottery(ctx context.Context, id string) (*views.Lottery, error)
	Results(ctx context.Context, force bool) (map[string]views.Result, error)
	PastDraws(ctx context.Context, force bool, typeName string) ([]views.Result, error)
	RecentWinners(ctx context.Context, force bool) ([]views.Winner, error)
	PrizePool(ctx context.Context, force bool) (decimal.Decimal, error)
	Types(ctx context.Context, force bool) ([]models.LotteryType, error)
	Issues(ctx context.Context, force bool) ([]models.LotteryIssue, error)
	Tickets(ctx context.Context, address string, force bool, status string) ([]views.Ticket, error)
	CreateType(ctx context.Context, name, description string) (*models.LotteryType, error)
	CreateLottery(ctx context.Context, req models.LotteryRequest, first *models.LotteryIssueRequest) (*models.Lottery, error)
	CreateIssue(ctx context.Context, lotteryID, number, saleEnd, drawTime string) (*models.LotteryIssue, error)
	ImportIssues(ctx context.Context, r io.Reader) (services.ImportResult, error)
	ExecuteDraw(ctx context.Context, issueID string) (int, error)
	Purchase(ctx context.Context, req services.PurchaseRequest) (*models.LotteryTicket, error)
}

// Wallets is the wallet service as the handlers use it.
type Wallets interface {
	Challenge(sessionID string) string
	Connect(ctx context.Context, sessionID, walletType, address, signatureHex string) (models.WalletState, error)
	Status(ctx context.Context, sessionID string, force bool) models.WalletState
	Disconnect(ctx context.Context, sessionID string) error
}

// Users is the user service as the handlers use it.
type Users interface {
	State(ctx context.Context, wallet models.WalletState, force bool) (models.UserState, error)
	RegisterKYC(ctx context.Context, address string, form services.KycForm, photo *services.Photo) error
	Customers(ctx context.Context) (all, pending []models.Customer, err error)
	Customer(ctx context.Context, address string) (*models.Customer, error)
	Roles(ctx context.Context) ([]models.Role, error)
}

// Options are the presentation and cookie settings of the handlers. Health,
// when set, is checked by /healthz.
type Options struct {
	DefaultLanguage string
	PageSize        int
	SecureCookie    bool
	Health          func(context.Context) error
}

// SessionCookie holds the signed session token.
const SessionCookie = "w3lottery_session"

const (
	ctxSessionID = "sessionID"
	ctxLanguage  = "lang"
	ctxExpired   = "sessionExpired"
	ctxUserError = "userError"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	lottery   LotteryData
	wallets   Wallets
	users     Users
	tokens    *services.SessionTokens
	templates *template.Template
	opts      Options
	now       func() time.Time
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(lottery LotteryData, wallets Wallets, users Users, tokens *services.SessionTokens, templates *template.Template, opts Options) *HTTPHandler {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if !i18n.Supported(opts.DefaultLanguage) {
		opts.DefaultLanguage = i18n.English
	}
	return &HTTPHandler{
		lottery:   lottery,
		wallets:   wallets,
		users:     users,
		tokens:    tokens,
		templates: templates,
		opts:      opts,
		now:       time.Now,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	app := router.Group("/")
	app.Use(h.SessionMiddleware(), access.Middleware(h.resolveUser))

	app.GET("/", h.ShowIndex)
	app.GET("/results", h.ShowResults)
	app.GET("/results/export.csv", h.ExportDrawsCSV)
	app.GET("/buy", h.ShowBuy)
	app.GET("/buy/quick-pick", h.QuickPick)
	app.GET("/buy/summary", h.BuySummary)
	app.POST("/buy", h.Buy)
	app.GET("/history", h.ShowHistory)
	app.GET("/history/export.csv", h.ExportTicketsCSV)
	app.GET("/kyc", h.ShowKYC)
	app.POST("/kyc", h.SubmitKYC)

	app.GET("/admin/manage", h.ShowAdminManage)
	app.POST("/admin/manage/types", h.CreateType)
	app.POST("/admin/manage/lotteries", h.CreateLottery)
	app.POST("/admin/manage/issues", h.CreateIssue)
	app.POST("/admin/manage/issues/import", h.ImportIssues)
	app.POST("/admin/manage/draw", h.Draw)
	app.GET("/admin/user", h.ShowAdminUsers)
	app.GET("/admin/user/:address", h.ShowCustomer)

	app.POST("/refresh/:resource", h.Refresh)
	app.GET("/wallet/challenge", h.WalletChallenge)
	app.POST("/wallet/connect", h.WalletConnect)
	app.POST("/wallet/disconnect", h.WalletDisconnect)
	app.POST("/language", h.SetLanguage)
}

// Healthz reports liveness and the health of the cache store.
func (h *HTTPHandler) Healthz(c *gin.Context) {
	if h.opts.Health != nil {
		if err := h.opts.Health(c.Request.Context()); err != nil {
			logger.Warningf("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SessionMiddleware makes sure every browser carries a signed session id and
// picks the display language.
func (h *HTTPHandler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sid string
		if tok, err := c.Cookie(SessionCookie); err == nil && tok != "" {
			if parsed, err := h.tokens.Parse(tok); err == nil {
				sid = parsed
			} else {
				logger.Infof("Discarding session cookie: %v", err)
			}
		}
		if sid == "" {
			sid = services.NewSessionID()
			tok, err := h.tokens.Issue(sid)
			if err != nil {
				logger.Errorf("Failed to issue session token: %v", err)
				c.String(http.StatusInternalServerError, "Session error")
				c.Abort()
				return
			}
			c.SetCookie(SessionCookie, tok, int(h.tokens.TTL().Seconds()), "/", "", h.opts.SecureCookie, true)
		}
		c.Set(ctxSessionID, sid)
		c.Set(ctxLanguage, h.language(c))
		c.Next()
	}
}

func (h *HTTPHandler) language(c *gin.Context) string {
	cookie, _ := c.Cookie(i18n.Cookie)
	header := c.GetHeader("Accept-Language")
	if !i18n.Supported(cookie) && header == "" {
		return h.opts.DefaultLanguage
	}
	return i18n.Negotiate(cookie, header)
}

func sessionID(c *gin.Context) string { return c.GetString(ctxSessionID) }

func lang(c *gin.Context) string {
	if l := c.GetString(ctxLanguage); l != "" {
		return l
	}
	return i18n.English
}

// resolveUser loads the user behind the session for the access middleware.
func (h *HTTPHandler) resolveUser(c *gin.Context) models.UserState {
	ctx := c.Request.Context()
	wallet := h.wallets.Status(ctx, sessionID(c), false)
	st, err := h.users.State(ctx, wallet, false)
	if err != nil {
		if h.expireOn(c, err) {
			return models.UserState{}
		}
		logger.Warningf("Failed to load user state of %s: %v", wallet.Address, err)
		c.Set(ctxUserError, err.Error())
		return models.UserState{Address: wallet.Address, IsConnected: wallet.IsConnected}
	}
	return st
}

// expireOn ends the wallet session when err is a backend 401 and reports
// whether it did.
func (h *HTTPHandler) expireOn(c *gin.Context, err error) bool {
	if !errors.Is(err, models.ErrUnauthorized) {
		return false
	}
	if c.GetBool(ctxExpired) {
		return true
	}
	logger.Warningf("Backend rejected session %s: %v", sessionID(c), err)
	if derr := h.wallets.Disconnect(c.Request.Context(), sessionID(c)); derr != nil {
		logger.Errorf("Failed to clear session %s: %v", sessionID(c), derr)
	}
	c.Set(access.StateKey, models.UserState{})
	c.Set(ctxExpired, true)
	access.SetFlash(c, access.SessionExpired)
	return true
}

// redirectHome sends the browser to the home page, through HTMX when the
// request came from it.
func redirectHome(c *gin.Context) {
	if isHTMX(c) {
		c.Header("HX-Redirect", "/")
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// basePage returns the data every page template expects.
func (h *HTTPHandler) basePage(c *gin.Context, titleKey string) gin.H {
	l := lang(c)
	st := access.State(c)
	data := gin.H{
		"title":     i18n.T(l, titleKey, nil),
		"Lang":      l,
		"Languages": i18n.Languages,
		"User":      st,
		"Role":      access.RoleOf(st),
		"Path":      c.Request.URL.Path,
		"UserError": c.GetString(ctxUserError),
	}
	if c.GetBool(ctxExpired) {
		data["Flash"] = "access." + string(access.SessionExpired)
	} else if reason := access.TakeFlash(c); reason != "" {
		data["Flash"] = "access." + string(reason)
	}
	return data
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	if c.GetBool(ctxExpired) && c.Request.URL.Path != "/" {
		redirectHome(c)
		return
	}

	// Step 1: Render the specific page content into a buffer.
	buf := new(bytes.Buffer)
	err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData)
	if err != nil {
		logger.Infof("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	// Step 2: Add the rendered content to the main data map and render the layout.
	pageData["PageContent"] = template.HTML(buf.String())

	out := new(bytes.Buffer)
	if err := h.templates.ExecuteTemplate(out, "layout.html", pageData); err != nil {
		logger.Infof("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}
	c.Data(c.Writer.Status(), "text/html; charset=utf-8", out.Bytes())
}

// renderPartial renders one named template for an HTMX swap.
func (h *HTTPHandler) renderPartial(c *gin.Context, status int, name string, data any) {
	if c.GetBool(ctxExpired) {
		redirectHome(c)
		return
	}
	buf := new(bytes.Buffer)
	if err := h.templates.ExecuteTemplate(buf, name, data); err != nil {
		logger.Infof("Error executing template %s: %v", name, err)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// notice renders the inline message partial.
func (h *HTTPHandler) notice(c *gin.Context, status int, kind, message string) {
	h.renderPartial(c, status, "notice", gin.H{"Kind": kind, "Message": message, "Lang": lang(c)})
}

// failAction reports a failed write. Validation problems are a 400, a
// rejected session goes home, anything else is a 502.
func (h *HTTPHandler) failAction(c *gin.Context, op string, err error) {
	if h.expireOn(c, err) {
		redirectHome(c)
		return
	}
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		h.notice(c, http.StatusBadRequest, "error", verr.Error())
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNoActiveIssue):
		logger.Infof("%s: %v", op, err)
		h.notice(c, http.StatusNotFound, "error", err.Error())
	default:
		logger.Errorf("%s failed: %v", op, err)
		h.notice(c, http.StatusBadGateway, "error", err.Error())
	}
}
