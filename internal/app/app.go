package app

import (
	"math/big"

	"terrafund-backend/internal/amm"
	"terrafund-backend/internal/audit"
	"terrafund-backend/internal/auth"
	"terrafund-backend/internal/chain"
	"terrafund-backend/internal/config"
	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/database"
	"terrafund-backend/internal/distribution"
	"terrafund-backend/internal/escrow"
	"terrafund-backend/internal/health"
	"terrafund-backend/internal/middleware"
	"terrafund-backend/internal/project"
	"terrafund-backend/internal/token"
	"terrafund-backend/internal/users"
	"terrafund-backend/internal/wallets"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// gormPinger adapts *gorm.DB to the health check's Ping interface.
type gormPinger struct{ db *gorm.DB }

func (g gormPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app: global middleware, one-time service wiring
// (escrow ↔ project ↔ token ↔ amm ↔ distribution handles), and route
// registration. Returns the DB and Redis clients so the caller can ping them
// at startup.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Stripe webhook is mounted before the session layer: it authenticates
	// with the signature header, not a cookie, and needs the raw body.
	stripeWebhook := &wallets.WebhookHandler{WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", func(c *fiber.Ctx) error {
		return stripeWebhook.HandleWebhook(c)
	})

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		if db, err = database.Open(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}
		stripeWebhook.DB = db
	}

	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		healthHandlers.DB = gormPinger{db}
	}
	app.Get("/", healthHandlers.Dashboard)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil {
		// tests construct their own apps; without a DB only auth/health exist
		return app, nil, rdb, nil
	}

	treasuryID, err := uuid.Parse(cfg.TreasuryUserID)
	if err != nil {
		treasuryID = uuid.Nil
	}
	maxPerBlock, _ := new(big.Int).SetString(cfg.MintMaxPerBlock, 10)
	largeThreshold, _ := new(big.Int).SetString(cfg.MintLargeThreshold, 10)

	// One-time service wiring. The token registry authorizes the lifecycle
	// controller and admin batch sweeps to burn third-party balances.
	heights := chain.NewSlotClock(cfg.SlotSeconds)
	tokenService := &token.Service{
		DB:             db,
		Heights:        heights,
		MaxPerBlock:    maxPerBlock,
		LargeThreshold: largeThreshold,
		CooldownBlocks: cfg.MintCooldownBlocks,
		AuthorizedBurners: map[string]bool{
			escrow.RoleLifecycle: true,
		},
	}
	escrowService := &escrow.Service{DB: db, TreasuryID: treasuryID}
	projectService := &project.Service{DB: db, Escrow: escrowService, Tokens: tokenService}
	ammService := &amm.Service{DB: db, Tokens: tokenService, Heights: heights, TreasuryID: treasuryID}
	distService := &distribution.Service{
		DB:         db,
		Tokens:     tokenService,
		Escrow:     escrowService,
		Heights:    heights,
		TreasuryID: treasuryID,
	}
	walletService := &wallets.Service{DB: db}
	userService := &users.Service{DB: db}

	userHandlers := &users.Handlers{Service: userService}
	userGroup := app.Group("/api/v1/users", middleware.RequireAuth())
	userGroup.Post("/", middleware.AuthorizePermission(constants.CreateUser), userHandlers.Create)
	userGroup.Patch("/update-role", middleware.AuthorizePermission(constants.AssignRole), userHandlers.UpdateRole)

	walletHandlers := &wallets.Handlers{
		Service:       walletService,
		IntentCreator: &wallets.StripeCreator{SecretKey: cfg.StripeSecretKey},
	}
	walletGroup := app.Group("/api/v1/wallets", middleware.RequireAuth())
	walletGroup.Get("/balance", walletHandlers.Balance)
	walletGroup.Post("/top-up", walletHandlers.TopUp)

	projectHandlers := &project.Handlers{Service: projectService, Tokens: tokenService}
	projectGroup := app.Group("/api/v1/projects", middleware.RequireAuth())
	projectGroup.Post("/", middleware.AuthorizePermission(constants.CreateProject), projectHandlers.Create)
	projectGroup.Get("/:projectId", middleware.AuthorizePermission(constants.ViewData), projectHandlers.Get)
	projectGroup.Get("/:projectId/milestones", middleware.AuthorizePermission(constants.ViewData), projectHandlers.Milestones)
	projectGroup.Get("/:projectId/position", middleware.AuthorizePermission(constants.ViewData), projectHandlers.Position)
	projectGroup.Get("/:projectId/token", middleware.AuthorizePermission(constants.ViewData), projectHandlers.TokenInfo)
	projectGroup.Post("/:projectId/milestones", middleware.AuthorizePermission(constants.ManageMilestones), projectHandlers.AddMilestone)
	projectGroup.Post("/:projectId/verifiers", middleware.AuthorizePermission(constants.AssignVerifier), projectHandlers.AddVerifier)
	projectGroup.Post("/:projectId/invest", middleware.AuthorizePermission(constants.Invest), projectHandlers.Invest)
	projectGroup.Post("/:projectId/start-building", middleware.AuthorizePermission(constants.TransitionPhase), projectHandlers.StartBuilding())
	projectGroup.Post("/:projectId/start-trading", middleware.AuthorizePermission(constants.TransitionPhase), projectHandlers.StartTrading())
	projectGroup.Post("/:projectId/start-final-sale", middleware.AuthorizePermission(constants.TransitionPhase), projectHandlers.StartFinalSale())
	projectGroup.Post("/:projectId/complete", middleware.AuthorizePermission(constants.TransitionPhase), projectHandlers.Complete)
	projectGroup.Post("/:projectId/cancel", middleware.AuthorizePermission(constants.TransitionPhase), projectHandlers.Cancel())
	projectGroup.Post("/:projectId/milestones/:index/submit", middleware.AuthorizePermission(constants.SubmitMilestone), projectHandlers.SubmitMilestone)
	projectGroup.Post("/:projectId/milestones/:index/verify", middleware.AuthorizePermission(constants.VerifyMilestone), projectHandlers.VerifyMilestone)
	projectGroup.Post("/:projectId/milestones/:index/dispute", middleware.AuthorizePermission(constants.DisputeMilestone), projectHandlers.DisputeMilestone)
	projectGroup.Post("/:projectId/milestones/:index/resolve", middleware.AuthorizePermission(constants.ResolveDispute), projectHandlers.ResolveDispute)
	projectGroup.Post("/:projectId/claim-refund", middleware.AuthorizePermission(constants.ClaimRefund), projectHandlers.ClaimRefund)

	escrowHandlers := &escrow.Handlers{Service: escrowService}
	escrowGroup := app.Group("/api/v1/escrow", middleware.RequireAuth())
	escrowGroup.Get("/:projectId", middleware.AuthorizePermission(constants.ViewData), escrowHandlers.Account)
	escrowGroup.Get("/:projectId/balance", middleware.AuthorizePermission(constants.ViewData), escrowHandlers.Balance)
	escrowGroup.Get("/:projectId/contingency", middleware.AuthorizePermission(constants.ViewData), escrowHandlers.Contingency)
	escrowGroup.Get("/:projectId/payouts/:index", middleware.AuthorizePermission(constants.ViewData), escrowHandlers.Payout)
	escrowGroup.Post("/:projectId/use-contingency", middleware.AuthorizePermission(constants.UseContingency), escrowHandlers.UseContingency)
	escrowGroup.Post("/:projectId/collect-platform-fee", middleware.AuthorizePermission(constants.CollectFee), escrowHandlers.CollectPlatformFee)
	escrowGroup.Post("/:projectId/emergency-withdraw", middleware.AuthorizePermission(constants.EmergencyWithdraw), escrowHandlers.EmergencyWithdraw)

	ammHandlers := &amm.Handlers{Service: ammService}
	ammGroup := app.Group("/api/v1/amm", middleware.RequireAuth())
	ammGroup.Get("/:projectId", middleware.AuthorizePermission(constants.ViewData), ammHandlers.Pool)
	ammGroup.Get("/:projectId/price", middleware.AuthorizePermission(constants.ViewData), ammHandlers.Price)
	ammGroup.Get("/:projectId/quote", middleware.AuthorizePermission(constants.ViewData), ammHandlers.Quote)
	ammGroup.Post("/:projectId/create-pool", middleware.AuthorizePermission(constants.ProvideLiquidity), ammHandlers.CreatePool)
	ammGroup.Post("/:projectId/add-liquidity", middleware.AuthorizePermission(constants.ProvideLiquidity), ammHandlers.AddLiquidity)
	ammGroup.Post("/:projectId/remove-liquidity", middleware.AuthorizePermission(constants.ProvideLiquidity), ammHandlers.RemoveLiquidity)
	ammGroup.Post("/:projectId/swap-tokens-for-stable", middleware.AuthorizePermission(constants.Swap), ammHandlers.SwapTokensForStable())
	ammGroup.Post("/:projectId/swap-stable-for-tokens", middleware.AuthorizePermission(constants.Swap), ammHandlers.SwapStableForTokens())
	ammGroup.Post("/:projectId/pause", middleware.AuthorizePermission(constants.ManagePool), ammHandlers.Pause)
	ammGroup.Post("/:projectId/resume", middleware.AuthorizePermission(constants.ManagePool), ammHandlers.Resume)
	ammGroup.Post("/:projectId/collect-fees", middleware.AuthorizePermission(constants.CollectFee), ammHandlers.CollectFees)
	ammGroup.Post("/:projectId/emergency-withdraw", middleware.AuthorizePermission(constants.EmergencyWithdraw), ammHandlers.EmergencyWithdraw)
	ammGroup.Patch("/:projectId/config", middleware.AuthorizePermission(constants.ManagePool), ammHandlers.UpdateConfig)

	distHandlers := &distribution.Handlers{Service: distService}
	distGroup := app.Group("/api/v1/distributions", middleware.RequireAuth())
	distGroup.Get("/:projectId", middleware.AuthorizePermission(constants.ViewData), distHandlers.Get)
	distGroup.Get("/:projectId/claimable", middleware.AuthorizePermission(constants.ViewData), distHandlers.Claimable)
	distGroup.Post("/:projectId/initiate", middleware.AuthorizePermission(constants.ManageDistribution), distHandlers.Initiate)
	distGroup.Post("/:projectId/claim", middleware.AuthorizePermission(constants.ClaimProfit), distHandlers.Claim)
	distGroup.Post("/:projectId/batch-claim", middleware.AuthorizePermission(constants.ManageDistribution), distHandlers.BatchClaim)
	distGroup.Post("/:projectId/complete", middleware.AuthorizePermission(constants.ManageDistribution), distHandlers.Complete)
	distGroup.Post("/:projectId/recover", middleware.AuthorizePermission(constants.ManageDistribution), distHandlers.Recover)

	auditHandlers := &audit.Handlers{DB: db}
	auditGroup := app.Group("/api/v1/audit", middleware.RequireAuth())
	auditGroup.Get("/:projectId", middleware.AuthorizePermission(constants.ViewData), auditHandlers.List)

	return app, db, rdb, nil
}
