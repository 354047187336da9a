package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"power-token-exchange/config"
	"power-token-exchange/contracts"
	"power-token-exchange/handlers"
	"power-token-exchange/logger"
	"power-token-exchange/middleware"
	"power-token-exchange/models"
	"power-token-exchange/services"
	"power-token-exchange/utils"
	"power-token-exchange/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config: ", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startingBalance, err := models.ParseBalance(cfg.StartingBalance)
	if err != nil {
		logger.Fatal("invalid STARTING_BALANCE: ", err)
	}

	// --- Local fallback store (always available) ---
	local, err := services.OpenLocalBackend(cfg.LocalStorePath)
	if err != nil {
		logger.Fatal("failed to open local store: ", err)
	}
	defer local.Close()

	// --- Remote backend (optional) ---
	var remote services.Backend
	if cfg.RemoteEnabled() {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			logger.Warn("⚠️  failed to connect to hosted database, sessions will fall back to local: ", err)
		} else if err := services.MigrateRemote(db); err != nil {
			logger.Warn("⚠️  failed to migrate hosted database, sessions will fall back to local: ", err)
		} else {
			auth := services.NewGoTrueClient(cfg.AuthURL, cfg.AuthAnonKey)
			remote = services.NewRemoteBackend(db, auth, cfg.AuthJWTSecret)
		}
	} else {
		logger.Warn("⚠️  DATABASE_URL / AUTH_URL not set, every session runs on the local store")
	}

	store := services.NewStore(remote, local, startingBalance)
	if cfg.SeedDemoData {
		if err := store.SeedDemoData(ctx); err != nil {
			logger.Warn("⚠️  failed to seed demo data: ", err)
		}
	}

	registry := services.NewSessionRegistry(cfg.SessionTTL)

	market, err := services.NewMarketplaceService(store, cfg.CheckoutDelay)
	if err != nil {
		logger.Fatal("failed to load marketplace catalog: ", err)
	}

	// --- Chain (optional) ---
	var chain handlers.Chain
	var minter services.NFTMinter
	if cfg.ChainEnabled() {
		nft, client, err := contracts.Dial(ctx, cfg.EthRPCURL, cfg.ContractAddress, cfg.SignerPrivateKey, cfg.ChainID)
		if err != nil {
			logger.Warn("⚠️  chain unavailable: ", err)
		} else {
			defer client.Close()
			chain = nft
			minter = nft
		}
	}

	var metadata services.MetadataStore
	if cfg.R2Enabled() {
		uploader, err := utils.NewMetadataUploader(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			logger.Warn("⚠️  R2 unavailable, token URIs will be inline: ", err)
		} else {
			metadata = uploader
		}
	}
	mintService := services.NewMintService(store, minter, metadata)

	// --- Wallet provider (optional) ---
	var provider services.WalletProvider
	walletURL := cfg.WalletRPCURL
	if walletURL == "" {
		walletURL = cfg.EthRPCURL
	}
	if walletURL != "" {
		rpcProvider, err := services.DialWalletProvider(ctx, walletURL)
		if err != nil {
			logger.Warn("⚠️  wallet provider unavailable: ", err)
		} else {
			defer rpcProvider.Close()
			provider = rpcProvider
		}
	}
	wallets := services.NewWalletService(provider, store, registry)

	// --- Workers ---
	reaper, err := workers.StartSessionReaper(registry, time.Minute)
	if err != nil {
		logger.Fatal("failed to start session reaper: ", err)
	}
	defer reaper.Shutdown()

	if provider != nil {
		go workers.PollWallets(ctx, provider, wallets.HandleAccountsChanged, cfg.WalletPollInterval)
	}
	if remote != nil {
		workers.NewProfileSyncWorker(store, registry, cfg.ProfileSyncInterval).Start(ctx)
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		AppName: "power-token-exchange",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, Cache-Control, X-Session-Token, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"remote":   remote != nil,
			"chain":    chain != nil,
			"wallet":   provider != nil,
			"sessions": registry.Count(),
		})
	})

	app.Use(middleware.ServiceTokenMiddleware(cfg.ServiceToken))

	handlers.SetupSessionRoutes(app, store, registry)
	handlers.SetupAccountRoutes(app, store, mintService, registry)
	handlers.SetupWalletRoutes(app, store, wallets, registry)
	handlers.SetupMarketplaceRoutes(app, market, registry)
	handlers.SetupChainRoutes(app, chain, store, registry)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error("Server error: ", err)
		}
	}()

	logger.Infof("✅ Server running on http://localhost:%d", cfg.Port)
	logger.Infof("✅ Remote backend: %t | Chain: %t | Wallet provider: %t", remote != nil, chain != nil, provider != nil)
	logger.Infof("✅ CORS configured for origins: %s", cfg.Origins())

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Error("Shutdown error: ", err)
	}
}
