package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eziosantori/cbot-farm/internal/config"
	"github.com/eziosantori/cbot-farm/internal/engine"
	"github.com/eziosantori/cbot-farm/internal/model"
	"github.com/eziosantori/cbot-farm/internal/optimize"
	"github.com/eziosantori/cbot-farm/internal/storage"
	"github.com/eziosantori/cbot-farm/internal/strategy"
)

// CampaignRunner launches full optimization campaigns. Satisfied by
// app.Runner; kept as an interface so handlers can be tested without it.
type CampaignRunner interface {
	RunCampaign(ctx context.Context, strategyID string, markets, symbols, timeframes []string, iterations int) (interface{}, error)
}

type Handler struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	risk     *config.RiskConfig
	riskPath string
	store    *storage.ReportStore
	loader   *engine.DataLoader
	pool     *engine.WorkerPool
	runner   CampaignRunner
}

func NewHandler(db *pgxpool.Pool, logger *zap.Logger, risk *config.RiskConfig, riskPath string, store *storage.ReportStore, pool *engine.WorkerPool, runner CampaignRunner) *Handler {
	return &Handler{
		db:       db,
		logger:   logger,
		risk:     risk,
		riskPath: riskPath,
		store:    store,
		loader:   engine.NewDataLoader(db),
		pool:     pool,
		runner:   runner,
	}
}

// Auth Handlers

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	var userID int64
	err = h.db.QueryRow(c.Request.Context(),
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		req.Email, string(hash)).Scan(&userID)

	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created", "id": userID})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID int64
	var hash string
	err := h.db.QueryRow(c.Request.Context(),
		"SELECT id, password_hash FROM users WHERE email = $1", req.Email).Scan(&userID, &hash)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Strategy Handlers

func (h *Handler) ListStrategies(c *gin.Context) {
	names := strategy.List()
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		out = append(out, gin.H{
			"id":           id,
			"display_name": names[id],
		})
	}
	c.JSON(http.StatusOK, out)
}

// Parameter Space Handlers

func (h *Handler) ListSpaces(c *gin.Context) {
	ids := h.risk.SpaceIDs()
	sort.Strings(ids)
	c.JSON(http.StatusOK, gin.H{"strategies": ids})
}

func (h *Handler) GetSpace(c *gin.Context) {
	space := h.risk.SpaceFor(c.Param("strategy"))
	if space == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no parameter space configured"})
		return
	}
	c.JSON(http.StatusOK, space)
}

// UpdateSpace replaces a strategy's parameter space after validating that it
// expands into a well-formed plan, then persists the config.
func (h *Handler) UpdateSpace(c *gin.Context) {
	strategyID := c.Param("strategy")
	if _, err := strategy.New(strategyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var space optimize.Space
	if err := c.ShouldBindJSON(&space); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := optimize.BuildPlan(&space)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.risk.SetSpace(strategyID, &space)
	if h.riskPath != "" {
		if err := h.risk.Save(h.riskPath); err != nil {
			h.logger.Error("failed to persist risk config", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"strategy":             strategyID,
		"total_candidates":     plan.TotalCandidates,
		"raw_total_candidates": plan.RawTotalCandidates,
		"truncated":            plan.Truncated,
	})
}

// PreviewSpace expands a strategy's parameter space without running anything,
// so an operator can sanity-check candidate counts before a campaign.
func (h *Handler) PreviewSpace(c *gin.Context) {
	strategyID := c.Param("strategy")
	plan, err := optimize.BuildPlan(h.risk.SpaceFor(strategyID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sample := plan.Candidates
	if len(sample) > 5 {
		sample = sample[:5]
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":             strategyID,
		"source":               plan.Source,
		"search_mode":          plan.SearchMode,
		"total_candidates":     plan.TotalCandidates,
		"raw_total_candidates": plan.RawTotalCandidates,
		"truncated":            plan.Truncated,
		"space":                plan.Space,
		"sample":               sample,
	})
}

// Backtest Handlers

func normalizeSymbol(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}

func (h *Handler) RunBacktest(c *gin.Context) {
	var req struct {
		Symbol     string       `json:"symbol" binding:"required"`
		Market     string       `json:"market"`
		Timeframe  string       `json:"timeframe" binding:"required"`
		StrategyID string       `json:"strategy_id" binding:"required"`
		Params     model.Params `json:"params"`
		StartTime  time.Time    `json:"start_time" binding:"required"`
		EndTime    time.Time    `json:"end_time" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strat, err := strategy.New(req.StrategyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := normalizeSymbol(req.Symbol)
	bars, err := h.loader.LoadBars(c.Request.Context(), symbol, req.Timeframe, req.StartTime, req.EndTime)
	if err != nil {
		h.logger.Error("failed to fetch bars for backtest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch data"})
		return
	}

	cost := engine.ResolveCostProfile(h.risk.Execution, req.Market, req.Timeframe, strat)
	result := engine.NewBacktester(strat, cost, h.logger).Run(bars, req.Params)
	result.Market = req.Market
	result.Symbol = symbol
	result.Timeframe = req.Timeframe

	metrics := engine.ComputeMetrics(result, req.Timeframe)
	gates := optimize.EvaluateGates(metrics, h.risk.GateLimits())

	c.JSON(http.StatusOK, gin.H{
		"backtest": result,
		"metrics":  metrics,
		"gates":    gates,
		"score":    metrics.TotalReturnPct - metrics.MaxDrawdownPct,
	})
}

// RunOptimization evaluates every plan candidate over DB bars in parallel and
// returns the leaderboard. For the long-running file-dataset campaign loop
// with persistence, see RunCampaign.
func (h *Handler) RunOptimization(c *gin.Context) {
	var req struct {
		Symbol     string    `json:"symbol" binding:"required"`
		Market     string    `json:"market"`
		Timeframe  string    `json:"timeframe" binding:"required"`
		StrategyID string    `json:"strategy_id" binding:"required"`
		StartTime  time.Time `json:"start_time" binding:"required"`
		EndTime    time.Time `json:"end_time" binding:"required"`
		Top        int       `json:"top"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strat, err := strategy.New(req.StrategyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := optimize.BuildPlan(h.risk.SpaceFor(req.StrategyID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candidates := plan.Candidates
	if len(candidates) == 0 {
		// no configured space: evaluate a handful of sampled candidates
		for i := 1; i <= 10; i++ {
			candidates = append(candidates, strat.SampleParams(i))
		}
	}

	symbol := normalizeSymbol(req.Symbol)
	bars, err := h.loader.LoadBars(c.Request.Context(), symbol, req.Timeframe, req.StartTime, req.EndTime)
	if err != nil {
		h.logger.Error("failed to fetch bars for optimization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch data"})
		return
	}

	cost := engine.ResolveCostProfile(h.risk.Execution, req.Market, req.Timeframe, strat)
	outcomes, err := h.pool.EvaluateAll(c.Request.Context(), bars, req.StrategyID, candidates, cost, req.Timeframe)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Score > outcomes[j].Score })
	top := req.Top
	if top <= 0 || top > len(outcomes) {
		top = len(outcomes)
		if top > 20 {
			top = 20
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"strategy":             req.StrategyID,
		"symbol":               symbol,
		"timeframe":            req.Timeframe,
		"total_candidates":     plan.TotalCandidates,
		"raw_total_candidates": plan.RawTotalCandidates,
		"truncated":            plan.Truncated,
		"evaluated":            len(outcomes),
		"results":              outcomes[:top],
	})
}

// RunCampaign starts the iterative optimization loop over file datasets with
// report persistence and NATS publication.
func (h *Handler) RunCampaign(c *gin.Context) {
	var req struct {
		StrategyID string   `json:"strategy_id" binding:"required"`
		Markets    []string `json:"markets"`
		Symbols    []string `json:"symbols"`
		Timeframes []string `json:"timeframes"`
		Iterations int      `json:"iterations"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "campaign runner not available"})
		return
	}

	outcome, err := h.runner.RunCampaign(c.Request.Context(), req.StrategyID, req.Markets, req.Symbols, req.Timeframes, req.Iterations)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Report Handlers

func (h *Handler) ListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	summaries, err := h.store.List(c.Request.Context(), c.Query("strategy"), limit)
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.store.Get(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}
