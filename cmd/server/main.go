// Command server hosts a demo checkout backend around the SDK core. It keeps
// one flow driver per checkout attempt and exposes the driver operations as
// HTTP endpoints, with the scripted mock gateway standing in for a real
// payment backend.
package main

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	custom_context "github.com/yourorg/checkout-sdk/internal/context"
	"github.com/yourorg/checkout-sdk/internal/flow"
	gatewaymock "github.com/yourorg/checkout-sdk/internal/gateway/mock"
	"github.com/yourorg/checkout-sdk/internal/monitor"
	"github.com/yourorg/checkout-sdk/internal/policy"
	"github.com/yourorg/checkout-sdk/internal/reporting"
	memorystore "github.com/yourorg/checkout-sdk/internal/store/memory"
	"github.com/yourorg/checkout-sdk/internal/wire"
)

const demoMerchant = "DemoMerchant"

// snapshotPresenter implements flow.Presenter by recording the last
// presentation request so handlers can return it as JSON.
type snapshotPresenter struct {
	mu          sync.Mutex
	methods     []wire.PaymentMethod
	fields      []wire.DetailField
	redirectURL string
	processing  bool
	outcome     *flow.Outcome
}

func (p *snapshotPresenter) ShowMethodList(methods []wire.PaymentMethod) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.methods = methods
	p.fields = nil
}

func (p *snapshotPresenter) ShowDetailsForm(fields []wire.DetailField) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields = fields
}

func (p *snapshotPresenter) ShowRedirect(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirectURL = u.String()
}

func (p *snapshotPresenter) ShowProcessing(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processing = active
}

func (p *snapshotPresenter) Finish(outcome flow.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := outcome
	p.outcome = &out
}

func (p *snapshotPresenter) snapshot() gin.H {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := gin.H{"processing": p.processing}
	if p.methods != nil {
		h["paymentMethods"] = p.methods
	}
	if p.fields != nil {
		h["requestedDetails"] = p.fields
	}
	if p.redirectURL != "" {
		h["redirectUrl"] = p.redirectURL
	}
	if p.outcome != nil {
		h["outcome"] = p.outcome
	}
	return h
}

type flowSession struct {
	driver    *flow.Driver
	presenter *snapshotPresenter
}

type app struct {
	configs  custom_context.ConfigRepository
	gateway  *gatewaymock.Gateway
	store    *memorystore.PreferredMethodStore
	policy   *policy.PreselectionPolicy
	monitor  *monitor.ContractMonitor
	journal  *reporting.FlowJournal
	reporter *reporting.RetrospectiveReporter

	mu    sync.Mutex
	flows map[string]*flowSession
}

func newApp() (*app, error) {
	configs := custom_context.NewInMemoryConfigRepository()
	configs.AddConfig(custom_context.CheckoutConfig{
		MerchantAccount: demoMerchant,
		ClientKey:       "test_demo_key",
		Environment:     "test",
		CountryCode:     "NL",
		ShopperLocale:   "nl-NL",
		Amount:          1000,
		Currency:        "EUR",
	})

	preselection, err := policy.NewPreselectionPolicy(policy.DefaultRules())
	if err != nil {
		return nil, err
	}

	return &app{
		configs:  configs,
		gateway:  gatewaymock.NewGateway(),
		store:    memorystore.NewPreferredMethodStore(),
		policy:   preselection,
		monitor:  monitor.NewDefaultContractMonitor(),
		journal:  reporting.NewFlowJournal(),
		reporter: reporting.NewRetrospectiveReporter(),
		flows:    make(map[string]*flowSession),
	}, nil
}

func (a *app) lookup(flowID string) (*flowSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fs, ok := a.flows[flowID]
	return fs, ok
}

// newFlow builds a driver wired to the app's collaborators. The finished
// hook feeds the retrospective journal.
func (a *app) newFlow(cfg custom_context.CheckoutConfig, shopperRef string) *flowSession {
	presenter := &snapshotPresenter{}
	hooks := flow.NewHookRegistry()
	hooks.On(flow.HookFlowFinished, func(e flow.Event) {
		entry := reporting.FlowLogEntry{
			Timestamp:  time.Now(),
			FlowID:     e.FlowID,
			ShopperRef: shopperRef,
			MethodType: e.MethodType,
			Amount:     cfg.Amount,
			Currency:   cfg.Currency,
		}
		if e.Outcome != nil {
			entry.Status = string(e.Outcome.Status)
			entry.ErrorCode = e.Outcome.FailureCode
		}
		a.journal.Append(entry)
	})

	driver := flow.NewDriver(flow.Config{
		Session:   a.gateway,
		Transport: a.gateway,
		Presenter: presenter,
		Store:     a.store.ForShopper(shopperRef),
		Policy:    a.policy,
		Monitor:   a.monitor,
		Hooks:     hooks,
	})
	fs := &flowSession{driver: driver, presenter: presenter}

	a.mu.Lock()
	a.flows[driver.FlowID()] = fs
	a.mu.Unlock()
	return fs
}

func (fs *flowSession) respond(c *gin.Context, code int) {
	body := fs.presenter.snapshot()
	body["flowId"] = fs.driver.FlowID()
	body["state"] = fs.driver.State().String()
	c.JSON(code, body)
}

func respondDriverError(c *gin.Context, err error) {
	var ise *flow.InvalidStateError
	if errors.As(err, &ise) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	log.Printf("Unexpected driver error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (a *app) startHandler(c *gin.Context) {
	var req struct {
		SessionToken string `json:"sessionToken"`
		ShopperRef   string `json:"shopperRef"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if req.SessionToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: sessionToken is required"})
		return
	}
	if req.ShopperRef == "" {
		req.ShopperRef = "anonymous-" + uuid.NewString()
	}

	cfg, err := a.configs.Get(demoMerchant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fs := a.newFlow(cfg, req.ShopperRef)
	tc := custom_context.NewRootTraceContext(c.Request.Context())
	if err := fs.driver.Start(tc, req.SessionToken); err != nil {
		respondDriverError(c, err)
		return
	}
	fs.respond(c, http.StatusCreated)
}

func (a *app) selectHandler(c *gin.Context) {
	fs, ok := a.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown flow"})
		return
	}
	var req struct {
		Type string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	var method wire.PaymentMethod
	found := false
	for _, m := range fs.driver.Methods() {
		if m.Type == req.Type {
			method = m
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: unknown payment method type: " + req.Type})
		return
	}

	tc := custom_context.NewRootTraceContext(c.Request.Context())
	if err := fs.driver.SelectMethod(tc, method); err != nil {
		respondDriverError(c, err)
		return
	}
	fs.respond(c, http.StatusOK)
}

func (a *app) detailsHandler(c *gin.Context) {
	fs, ok := a.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown flow"})
		return
	}
	var req struct {
		Values map[string]string `json:"values"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	tc := custom_context.NewRootTraceContext(c.Request.Context())
	if err := fs.driver.SubmitDetails(tc, req.Values); err != nil {
		respondDriverError(c, err)
		return
	}
	fs.respond(c, http.StatusOK)
}

func (a *app) redirectReturnHandler(c *gin.Context) {
	fs, ok := a.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown flow"})
		return
	}
	var req struct {
		ReturnQuery map[string]string `json:"returnQuery"`
		Payload     json.RawMessage   `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	tc := custom_context.NewRootTraceContext(c.Request.Context())
	if err := fs.driver.HandleRedirectReturn(tc, req.ReturnQuery, req.Payload); err != nil {
		respondDriverError(c, err)
		return
	}
	fs.respond(c, http.StatusOK)
}

func (a *app) cancelHandler(c *gin.Context) {
	fs, ok := a.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown flow"})
		return
	}
	if err := fs.driver.Cancel(); err != nil {
		respondDriverError(c, err)
		return
	}
	fs.respond(c, http.StatusOK)
}

func (a *app) statusHandler(c *gin.Context) {
	fs, ok := a.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown flow"})
		return
	}
	fs.respond(c, http.StatusOK)
}

func (a *app) retrospectiveHandler(c *gin.Context) {
	report := a.reporter.GenerateRetrospective(a.journal.Entries())
	c.JSON(http.StatusOK, report)
}

func setupRouter(a *app) *gin.Engine {
	router := gin.New()
	router.Use(otelgin.Middleware("checkout-demo"), gin.Logger(), gin.Recovery())

	router.POST("/checkout/start", a.startHandler)
	router.POST("/checkout/:id/select", a.selectHandler)
	router.POST("/checkout/:id/details", a.detailsHandler)
	router.POST("/checkout/:id/redirect-return", a.redirectReturnHandler)
	router.POST("/checkout/:id/cancel", a.cancelHandler)
	router.GET("/checkout/:id", a.statusHandler)
	router.GET("/retrospective", a.retrospectiveHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func initTracing() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func main() {
	log.Println("Starting checkout demo server...")

	tp, err := initTracing()
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	a, err := newApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	srv := &http.Server{Addr: ":8080", Handler: setupRouter(a)}

	ctx, stop := signal.NotifyContext(stdcontext.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
