package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-college/config"
	"go-college/logger"
	paydb "go-college/payment/db"
	"go-college/payment/gateway"
	"go-college/payment/metrics"
	"go-college/payment/notify"
	"go-college/payment/order"
	"go-college/service"
	"go-college/web/controllers"
	"go-college/web/db"
	"go-college/web/email"
	"go-college/web/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, "paymentservice")
	if err != nil {
		zap.NewExample().Fatal("logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.UsersDriver(), cfg.DSN, cfg.LogLevel != "debug")
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := db.Sync(gdb); err != nil {
		log.Fatal("migrate users", zap.Error(err))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal("database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	ledger, err := openLedger(cfg, gdb)
	if err != nil {
		log.Fatal("ledger", zap.Error(err))
	}

	m := metrics.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(reg); err != nil {
		log.Fatal("metrics", zap.Error(err))
	}

	users := db.NewUsers(gdb)
	notifiers, closeNotifiers := buildNotifiers(cfg, users, log)
	defer closeNotifiers()

	opts := []order.Option{
		order.WithSecrets(order.Secrets{KeySecret: cfg.ProviderKeySecret, WebhookSecret: cfg.ProviderWebhookSecret}),
		order.WithNotifier(notifiers),
		order.WithMetrics(m),
		order.WithLogger(log),
		order.WithProviderTimeout(cfg.ProviderTimeout),
		order.WithDefaultCurrency(cfg.DefaultCurrency),
	}
	keyID := ""
	if cfg.ProviderConfigured() {
		client := gateway.NewClient(cfg.ProviderBaseURL, cfg.ProviderKeyID, cfg.ProviderKeySecret, cfg.ProviderTimeout)
		opts = append(opts, order.WithProvider(client))
		keyID = client.KeyID()
	}
	if cfg.ProviderWebhookSecret == "" {
		log.Warn("webhook secret missing, provider webhooks will be rejected")
	}
	svc := order.NewService(ledger, opts...)
	if !svc.Configured() {
		log.Warn("payment provider credentials missing, order creation disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Instrument(m))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	controllers.Routes{
		Auth:     controllers.NewAuth(users, cfg.JWTSecret, cfg.TokenTTL, log),
		Payments: controllers.NewPayments(svc, keyID, cfg.ProviderSignatureHeader, log),
		Health:   controllers.NewHealth(sqlDB, cfg.DBDriver),
		Secret:   cfg.JWTSecret,
		Users:    users,
		Limiter:  middleware.RateLimit(buildLimiter(ctx, cfg, log), log),
	}.Register(r)

	stopped := service.Start(ctx, "paymentservice", ":"+cfg.Port, r, log)
	<-stopped.Done()
}

func openLedger(cfg *config.Config, gdb *gorm.DB) (order.Ledger, error) {
	switch cfg.DBDriver {
	case "memory":
		return order.NewMemoryLedger(), nil
	case "file":
		l, err := order.NewFileLedger(cfg.LedgerFile)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	if err := paydb.Migrate(gdb); err != nil {
		return nil, err
	}
	return paydb.NewLedger(gdb), nil
}

func buildLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) middleware.Limiter {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err == nil {
			log.Info("rate limiting through redis", zap.String("addr", cfg.RedisAddr))
			return middleware.NewRedisLimiter(client, cfg.RateLimit, cfg.RateWindow)
		}
		log.Warn("redis unavailable, rate limiting in memory", zap.Error(err))
		client.Close()
	}
	limiter := middleware.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
	limiter.StartCleanup(ctx, 10*time.Minute)
	return limiter
}

func buildNotifiers(cfg *config.Config, users *db.Users, log *zap.Logger) (order.Notifiers, func()) {
	var ns order.Notifiers
	var closers []func()

	if cfg.CallbackURL != "" {
		ns = append(ns, notify.NewCallback(cfg.CallbackURL, cfg.CallbackSecret, 5*time.Second))
	}

	if cfg.AMQPURL != "" {
		conn, ch, err := notify.SetupConn(cfg.AMQPURL, 5, log)
		if err != nil {
			log.Warn("payment events will not be published", zap.Error(err))
		} else {
			ns = append(ns, notify.NewPublisher(ch))
			closers = append(closers, func() {
				ch.Close()
				conn.Close()
			})
		}
	}

	if cfg.SMTP.Complete() {
		sender, err := email.NewSender(cfg.SMTP)
		if err != nil {
			log.Warn("email receipts disabled", zap.Error(err))
		} else {
			async := notify.NewAsync(notify.NewReceipts(sender, users.Email), log)
			ns = append(ns, async)
			closers = append([]func(){async.Wait}, closers...)
		}
	}

	return ns, func() {
		for _, c := range closers {
			c()
		}
	}
}
