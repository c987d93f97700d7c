package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/FormFox/app/controllers"
	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/billing"
	"github.com/ManuelReschke/FormFox/internal/pkg/cache"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
	"github.com/ManuelReschke/FormFox/internal/pkg/env"
	"github.com/ManuelReschke/FormFox/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/FormFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/FormFox/internal/pkg/oauth"
	"github.com/ManuelReschke/FormFox/internal/pkg/quota"
	"github.com/ManuelReschke/FormFox/internal/pkg/ratelimit"
	"github.com/ManuelReschke/FormFox/internal/pkg/router"
	"github.com/ManuelReschke/FormFox/internal/pkg/s3export"
	"github.com/ManuelReschke/FormFox/internal/pkg/secretbox"
	"github.com/ManuelReschke/FormFox/internal/pkg/session"
	"github.com/ManuelReschke/FormFox/internal/pkg/ticketing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app, manager := NewApplication()
	manager.Start()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[Server] Listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("[Server] Shutdown failed: %v", err)
	}
	manager.Stop()
}

// NewApplication wires configuration, storage and background workers into a
// fiber app. The returned manager is not started yet.
func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	rdb := cache.GetClient()

	codec, err := session.NewCodec(env.GetEnv("SESSION_SECRET", ""))
	if err != nil {
		log.Fatalf("[Auth] SESSION_SECRET: %v", err)
	}
	box, err := secretbox.New(env.GetEnv("ENCRYPTION_SECRET", ""))
	if err != nil {
		log.Fatalf("[Settings] ENCRYPTION_SECRET: %v", err)
	}

	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()
	views := counter.New(rdb, db)

	billingService := billing.NewServiceFromDB(db,
		billing.WithWebhookSecret(env.GetEnv("BILLING_WEBHOOK_SECRET", "")),
		billing.WithPlanMapper(billing.NewPlanMapper(env.GetEnv("BILLING_PLAN_MAP", ""), env.GetEnv("BILLING_PAID_PLAN", "pro"))),
	)
	if !billingService.SignatureEnforced() {
		log.Warn("[Billing] BILLING_WEBHOOK_SECRET is not set, webhook signatures are not verified")
	}

	// JOB QUEUE
	queue := jobqueue.NewQueue(rdb, env.GetEnvInt("JOBQUEUE_WORKERS", 3))
	queue.Register(jobqueue.JobTypeTicketCreate, jobqueue.TicketCreateHandler(
		ticketing.NewForwarder(repos.Form, repos.Submission, repos.Integration, box, ticketing.NewClient()),
	))
	manager := jobqueue.NewManager(queue, views.FlushAll)

	deps := &controllers.Deps{
		Repos:   repos,
		Ledger:  quota.NewLedger(db),
		Codec:   codec,
		Billing: billingService,
		Box:     box,
		Captcha: hcaptcha.NewFromEnv(),
		Tickets: queue,
		Views:   views,
		Cache:   cache.NewStore(rdb, "formfox:"),
		IPSalt:  env.GetEnv("IP_HASH_SALT", env.GetEnv("SESSION_SECRET", "")),
	}

	s3cfg, err := s3export.LoadConfig()
	if err != nil {
		log.Fatalf("[S3Export] %v", err)
	}
	if s3cfg.IsEnabled() {
		client, err := s3export.NewClient(context.Background(), s3cfg)
		if err != nil {
			log.Fatalf("[S3Export] %v", err)
		}
		queue.Register(jobqueue.JobTypeSubmissionExport, jobqueue.SubmissionExportHandler(
			s3export.NewExporter(client, repos.Form, repos.Submission),
		))
		deps.Exports = queue
	}

	providers := oauth.Setup(rdb)
	if len(providers) > 0 {
		log.Infof("[OAuth] Enabled providers: %s", strings.Join(providers, ", "))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics, only with configured credentials
	if user, pass := env.GetEnv("METRICS_USER", ""), env.GetEnv("METRICS_PASSWORD", ""); user != "" && pass != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{user: pass},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: findProjectFile("public/docs/v1/openapi.yml"),
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Config{
		Deps:                 deps,
		Guard:                session.NewGuard(codec, session.WithUserLookup(repos.User)),
		RateLimit:            ratelimit.NewStoreFromEnv(rdb),
		OAuthRedirect:        env.GetEnv("OAUTH_REDIRECT_URL", "/"),
		APIRequestsPerMinute: env.GetEnvInt("API_REQUESTS_PER_MINUTE", 60),
	})

	return app, manager
}

// findProjectFile resolves rel from the working directory or from cmd/formfox.
func findProjectFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return rel
}
