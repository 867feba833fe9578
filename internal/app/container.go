package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/config"
	httpx "github.com/you/dispatchsvc/internal/http"
	"github.com/you/dispatchsvc/internal/http/handlers"
	"github.com/you/dispatchsvc/internal/http/middleware"
	"github.com/you/dispatchsvc/internal/infrastructure/auth"
	"github.com/you/dispatchsvc/internal/infrastructure/database"
	"github.com/you/dispatchsvc/internal/infrastructure/locks"
	"github.com/you/dispatchsvc/internal/infrastructure/logging"
	"github.com/you/dispatchsvc/internal/infrastructure/notifications"
	"github.com/you/dispatchsvc/internal/infrastructure/payments"
	"github.com/you/dispatchsvc/internal/infrastructure/repositories"
	"github.com/you/dispatchsvc/internal/jobs"
	"github.com/you/dispatchsvc/internal/phone"
	"github.com/you/dispatchsvc/internal/services"
)

const codeHashCost = 10

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Locker      domain.KeyedLocker
	Policies    domain.PolicyManager
	Phones      *phone.Normalizer
	Templater   *services.MessageTemplater

	// Repositories
	UserRepo         domain.UserRepository
	OTPRepo          domain.OTPRepository
	NotificationRepo domain.NotificationRepository
	DeliveryLogRepo  domain.DeliveryLogRepository
	SubscriptionRepo domain.SubscriptionRepository

	// Gateways
	SMSGateway     domain.SMSGateway
	OTPGateway     domain.OTPGateway
	PrimaryMailer  domain.Mailer
	FallbackMailer domain.Mailer
	PaymentGateway domain.PaymentGateway

	// CallbackVerifier authenticates delivery reports sent to CallbackURL
	CallbackVerifier handlers.CallbackVerifier
	CallbackURL      string

	// Services
	TokenSvc        domain.TokenService
	Hasher          domain.CodeHasher
	SMSSvc          *services.SMSService
	EmailSvc        domain.EmailSender
	OTPSvc          domain.OTPService
	NotificationSvc domain.NotificationService
	SubscriptionSvc domain.SubscriptionService
	Scheduler       *jobs.Scheduler
}

// NewContainer connects to Postgres and Redis and builds every dependency
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN, logging.GormLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}

	rdb, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}

	return NewContainerWithStores(cfg, log, db, rdb)
}

// NewContainerWithStores builds every dependency on top of open stores. rdb may be nil.
func NewContainerWithStores(cfg *config.Config, log *zap.Logger, db *gorm.DB, rdb *redis.Client) (*Container, error) {
	c := &Container{Config: cfg, Logger: log, DB: db, RedisClient: rdb}

	c.initInfrastructure()
	c.initRepositories()
	c.initGateways()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	if err := c.initScheduler(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfrastructure() {
	if c.RedisClient != nil {
		c.Locker = locks.NewRedisLocker(c.RedisClient)
	} else {
		c.Logger.Warn("redis not configured, OTP issuance locks are process-local")
		c.Locker = locks.NewLocalLocker()
	}

	c.Phones = phone.NewNormalizer(c.Config.CountryCode, c.Config.LocalDigits)

	appName := c.Config.EmailFromName
	if appName == "" {
		appName = c.Config.SMSSenderID
	}
	c.Templater = services.NewMessageTemplater(appName, c.Config.SMSMaxLength)
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.OTPRepo = repositories.NewOTPRepository(c.DB)
	c.NotificationRepo = repositories.NewNotificationRepository(c.DB)
	c.DeliveryLogRepo = repositories.NewDeliveryLogRepository(c.DB)
	c.SubscriptionRepo = repositories.NewSubscriptionRepository(c.DB)
}

func (c *Container) initGateways() {
	cfg := c.Config

	switch cfg.SMSProvider {
	case "twilio":
		c.SMSGateway = notifications.NewTwilioSMSGateway(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Phones, c.Logger)
		c.CallbackVerifier = notifications.NewTwilioCallbackVerifier(cfg.TwilioToken, cfg.SMSCallback)
		c.CallbackURL = cfg.SMSCallback
	default:
		gw := notifications.NewHTTPSMSGateway(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSSenderID, cfg.SMSTimeout, c.Logger)
		c.SMSGateway = gw
		if cfg.OTP_Checker == services.CheckerGateway {
			c.OTPGateway = gw
		}
		tokens := notifications.NewTokenCallbackVerifier(cfg.SMSCallbackToken)
		c.CallbackVerifier = tokens
		c.CallbackURL = tokens.CallbackURL(cfg.SMSCallback)
	}

	var smtpPrimary domain.Mailer
	if cfg.SMTPHost != "" {
		smtpPrimary = notifications.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		c.PrimaryMailer = notifications.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFrom, "")
		c.FallbackMailer = smtpPrimary
	default:
		c.PrimaryMailer = smtpPrimary
		if cfg.SMTPFallback != "" {
			c.FallbackMailer = notifications.NewSMTPMailer(cfg.SMTPFallback, cfg.SMTPFallbackPt, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName)
		}
	}

	c.PaymentGateway = payments.NewPaystackClient(cfg.PaymentsBaseURL, cfg.PaymentsSecret, cfg.PaymentsTimeout, c.Logger)
}

func (c *Container) initServices() error {
	cfg := c.Config

	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
	c.Hasher = auth.NewCodeHasher(codeHashCost)

	cas, err := auth.NewCasbinService(c.DB, cfg.CasbinModelPath)
	if err != nil {
		return fmt.Errorf("casbin: %w", err)
	}
	c.Policies = cas

	c.SMSSvc = services.NewSMSService(c.SMSGateway, c.DeliveryLogRepo, c.Phones, c.Templater, c.Logger)
	if c.PrimaryMailer != nil && cfg.EmailFrom != "" {
		c.EmailSvc = services.NewEmailService(c.PrimaryMailer, c.FallbackMailer, c.DeliveryLogRepo, c.Templater, c.Logger)
	} else {
		c.Logger.Warn("email not configured, notifications are SMS only")
	}

	c.OTPSvc = services.NewOTPService(services.OTPDeps{
		OTPs:       c.OTPRepo,
		Users:      c.UserRepo,
		Limiter:    services.NewRateLimiter(c.OTPRepo, c.Locker, cfg.OTP_RateWindow, cfg.OTP_LockTTL),
		Phones:     c.Phones,
		Templater:  c.Templater,
		Hasher:     c.Hasher,
		SMS:        c.SMSSvc,
		OTPGateway: c.OTPGateway,
		Logs:       c.DeliveryLogRepo,
		Logger:     c.Logger,
	}, services.OTPConfig{
		TTL:         cfg.OTP_TTL,
		MaxAttempts: cfg.OTP_MaxAttempts,
		Checker:     cfg.OTP_Checker,
	})

	c.NotificationSvc = services.NewNotificationService(
		c.NotificationRepo,
		c.UserRepo,
		c.SMSSvc,
		c.EmailSvc,
		c.Templater,
		c.Logger,
		services.NotificationConfig{
			BacklogLimit:  cfg.BacklogLimit,
			RetentionDays: cfg.RetentionDays,
			CallbackURL:   c.CallbackURL,
		},
	)

	plans := make([]domain.SubscriptionPlan, 0, len(cfg.Plans))
	for _, p := range cfg.Plans {
		plans = append(plans, domain.SubscriptionPlan{ID: p.ID, Name: p.Name, Price: p.Price, DurationDays: p.DurationDays})
	}
	c.SubscriptionSvc = services.NewSubscriptionService(c.SubscriptionRepo, c.PaymentGateway, c.NotificationSvc, plans, c.Logger)

	return nil
}

func (c *Container) initScheduler() error {
	c.Scheduler = jobs.NewScheduler(c.SubscriptionSvc, c.OTPSvc, c.NotificationSvc, jobs.Schedules{
		SubscriptionExpiry: c.Config.SubscriptionExpiryJob,
		OTPCleanup:         c.Config.OTPCleanupJob,
		OTPCleanupAge:      c.Config.OTPCleanupAge,
		Retention:          c.Config.RetentionJob,
		RetentionDays:      c.Config.RetentionDays,
	}, c.Logger)
	if !c.Config.JobsEnabled {
		return nil
	}
	return c.Scheduler.Register()
}

// Router builds the HTTP API on top of the container's services
func (c *Container) Router() *gin.Engine {
	h := httpx.Handlers{
		OTP:           handlers.NewOTPHandlers(c.OTPSvc, c.Logger),
		Notifications: handlers.NewNotificationHandlers(c.NotificationSvc, c.Logger),
		Subscriptions: handlers.NewSubscriptionHandlers(c.SubscriptionSvc, c.Logger),
		Webhooks:      handlers.NewWebhookHandlers(c.SMSSvc, c.CallbackVerifier, c.Logger),
		SMS:           handlers.NewSMSHandlers(c.SMSSvc, c.SMSSvc, c.Logger),
		Policies:      handlers.NewPolicyHandlers(c.Policies, c.Logger),
	}
	limiter := middleware.NewIPRateLimiter(c.Config.RateLimitRPS, c.Config.RateLimitBurst, 0)
	return httpx.BuildRouter(h, middleware.NewAuthMW(c.TokenSvc), middleware.NewCasbinMW(c.Policies, c.Logger), limiter, c.Logger, c.Health)
}

// Health pings the database and, when configured, Redis
func (c *Container) Health(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
