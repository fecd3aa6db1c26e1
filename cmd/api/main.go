package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/dukapos/dukapos-api/internal/application/service"
	"github.com/dukapos/dukapos-api/internal/config"
	"github.com/dukapos/dukapos-api/internal/infrastructure/database"
	"github.com/dukapos/dukapos-api/internal/infrastructure/mpesa"
	"github.com/dukapos/dukapos-api/internal/infrastructure/repository"
	"github.com/dukapos/dukapos-api/internal/presentation/http/handler"
	"github.com/dukapos/dukapos-api/internal/presentation/http/routes"
	"github.com/dukapos/dukapos-api/pkg/email"
	"github.com/dukapos/dukapos-api/pkg/oauth"
	"github.com/dukapos/dukapos-api/pkg/printer"
	"github.com/dukapos/dukapos-api/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	variantRepo := repository.NewProductVariantRepository(db)
	stockRepo := repository.NewStockLevelRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	saleReturnRepo := repository.NewSaleReturnRepository(db)
	saleReturnItemRepo := repository.NewSaleReturnItemRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	paymentMethodRepo := repository.NewPaymentMethodRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	quotationDetailRepo := repository.NewQuotationDetailRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	passwordResetRepo := repository.NewPasswordResetTokenRepository(db)

	// Initialize email service
	emailService := email.NewEmailService(email.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
		FrontendURL:  cfg.Email.FrontendURL,
	})

	// Initialize Google OAuth service
	googleOAuthService := oauth.NewGoogleOAuthService(oauth.GoogleOAuthConfig{
		ClientID:           cfg.OAuth.GoogleClientID,
		ClientSecret:       cfg.OAuth.GoogleClientSecret,
		RedirectURL:        cfg.OAuth.GoogleRedirectURL,
		FrontendSuccessURL: cfg.OAuth.FrontendSuccessURL,
		FrontendErrorURL:   cfg.OAuth.FrontendErrorURL,
	})

	// Per-tenant M-Pesa gateway provider
	mpesaProvider := mpesa.NewProvider(cfg.Mpesa.CallbackURL)

	// Initialize services
	authService := service.NewAuthService(userRepo, roleRepo, tenantRepo, passwordResetRepo, jwtManager, emailService, googleOAuthService)
	tenantService := service.NewTenantService(tenantRepo, paymentMethodRepo)
	productService := service.NewProductService(productRepo, variantRepo, stockRepo, categoryRepo, unitRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	unitService := service.NewUnitService(unitRepo)
	saleService := service.NewSaleService(saleRepo, productRepo, customerRepo, locationRepo, paymentMethodRepo, stockRepo, tenantRepo, mpesaProvider, emailService)
	saleReturnService := service.NewSaleReturnService(saleReturnRepo, saleReturnItemRepo, saleRepo, productRepo, stockRepo, customerRepo, tenantRepo)
	customerService := service.NewCustomerService(customerRepo)
	locationService := service.NewLocationService(locationRepo, stockRepo)
	paymentMethodService := service.NewPaymentMethodService(paymentMethodRepo)
	dashboardService := service.NewDashboardService(saleRepo, saleReturnRepo, productRepo, customerRepo, analyticsRepo)
	quotationService := service.NewQuotationService(quotationRepo, quotationDetailRepo, productRepo, customerRepo, saleService)
	settingsService := service.NewSettingsService(settingsRepo)
	userService := service.NewUserService(userRepo, roleRepo, permissionRepo)

	// Initialize thermal printer
	thermalPrinter, err := printer.NewPrinterFromConfig(
		cfg.Printer.Type,
		cfg.Printer.USBPath,
		cfg.Printer.Address,
	)
	if err != nil {
		log.Printf("Warning: Failed to initialize printer: %v", err)
		thermalPrinter = printer.NewNullPrinter()
	}
	printerService := service.NewPrinterService(thermalPrinter, saleRepo, quotationRepo, tenantRepo, cfg.Printer.Type)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Tenant:        handler.NewTenantHandler(tenantService),
		Product:       handler.NewProductHandler(productService),
		Category:      handler.NewCategoryHandler(categoryService),
		Unit:          handler.NewUnitHandler(unitService),
		Sale:          handler.NewSaleHandler(saleService),
		SaleReturn:    handler.NewSaleReturnHandler(saleReturnService),
		Customer:      handler.NewCustomerHandler(customerService),
		Location:      handler.NewLocationHandler(locationService),
		PaymentMethod: handler.NewPaymentMethodHandler(paymentMethodService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		Quotation:     handler.NewQuotationHandler(quotationService),
		Settings:      handler.NewSettingsHandler(settingsService),
		User:          handler.NewUserHandler(userService),
		Printer:       handler.NewPrinterHandler(printerService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		TenantRepo:      tenantRepo,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
	log.Printf("Environment: %s", cfg.App.Env)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
