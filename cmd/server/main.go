// Command server runs the people access service: the admin HTTP API, the
// scheduled offboarding processor and the audit outbox relay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	accounthandler "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/handler"
	accountmetrics "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/metrics"
	accountservice "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/service"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/resolver"
	jwttoken "github.com/CuracelDev/curacel-peoplev2-sub001/internal/jwt_token"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/notify"
	offboardinghandler "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/handler"
	offboardingmetrics "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/metrics"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/scheduler"
	offboardingservice "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/service"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/config"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/httpserver"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/kafka"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/logger"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/redis"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/sealed"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/seed"
	httptransport "github.com/CuracelDev/curacel-peoplev2-sub001/internal/transport/http"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit/publisher"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit/worker"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/circuit"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/middleware/auth"
)

const (
	tokenPrefix   = "people:token:"
	revokedPrefix = "people:revoked:"
)

func main() {
	os.Exit(run())
}

func run() int {
	issueToken := flag.String("issue-token", "", "print an admin token for this operator email and exit")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of a token printed by -issue-token")
	revokeToken := flag.String("revoke-token", "", "revoke this admin token until it expires and exit")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	jwts := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	if *issueToken != "" {
		token, err := jwts.GenerateAccessToken(*issueToken, []string{auth.RoleAdmin}, *tokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			return 1
		}
		fmt.Println(token)
		return 0
	}

	if *revokeToken != "" {
		if err := revoke(context.Background(), cfg, jwts, *revokeToken); err != nil {
			fmt.Fprintf(os.Stderr, "revoke token: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := serve(ctx, cfg, jwts, log); err != nil {
		log.Error("server stopped with error", "error", err)
		return 1
	}
	return 0
}

func revoke(ctx context.Context, cfg config.Server, jwts *jwttoken.JWTService, token string) error {
	claims, err := jwts.ValidateToken(token)
	if err != nil {
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("token has no id or expiry")
	}
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("REDIS_URL is required to revoke tokens")
	}
	defer client.Close()
	return redis.NewRevocationList(client.Client, revokedPrefix).Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// application is the fully wired process, minus its background loops.
type application struct {
	handler     http.Handler
	offboarding *offboardingservice.Service
	stores      *stores
	redis       *redis.Client
}

func (a *application) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.stores.Close()
}

func build(ctx context.Context, cfg config.Server, jwts *jwttoken.JWTService, log *slog.Logger) (*application, error) {
	st := newMemoryStores()
	if cfg.DatabaseURL != "" {
		pg, err := newPostgresStores(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st = pg
	} else {
		log.WarnContext(ctx, "DATABASE_URL not set; using in-memory stores")
	}
	app := &application{stores: st}

	opener, err := sealed.NewOpener(cfg.AgeIdentity)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("age identity: %w", err)
	}
	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(ctx, cfg.SeedFile, st.seedTargets(), opener, log); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	resolverOpts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithTimeout(cfg.Connectors.Timeout),
		resolver.WithBreakers(circuit.NewRegistry()),
	}
	if app.redis != nil {
		resolverOpts = append(resolverOpts, resolver.WithTokenCache(redis.NewTokenCache(app.redis.Client, tokenPrefix)))
	}
	connectors := resolver.New(st.integrations, opener, resolverOpts...)
	auditPublisher := publisher.New(st.audit, publisher.WithLogger(log))

	accounts, err := accountservice.New(st.employees, st.integrations, st.rules, st.accounts, connectors,
		accountservice.WithLogger(log),
		accountservice.WithAuditPublisher(auditPublisher),
		accountservice.WithNotifier(notify.NewLogNotifier(log)),
		accountservice.WithMetrics(accountmetrics.New(reg)),
		accountservice.WithTxRunner(st.tx),
		accountservice.WithTimeout(cfg.Connectors.Timeout),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("account service: %w", err)
	}

	app.offboarding, err = offboardingservice.New(offboardingservice.Dependencies{
		Workflows:     st.workflows,
		Templates:     st.templates,
		Employees:     st.employees,
		Integrations:  st.integrations,
		Accounts:      st.accounts,
		Deprovisioner: accounts,
		Resolver:      connectors,
	},
		offboardingservice.WithLogger(log),
		offboardingservice.WithAuditPublisher(auditPublisher),
		offboardingservice.WithMetrics(offboardingmetrics.New(reg)),
		offboardingservice.WithParallelism(cfg.Offboarding.Parallelism),
		offboardingservice.WithTimeout(cfg.Connectors.Timeout),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("offboarding service: %w", err)
	}

	routerCfg := httptransport.Config{
		Logger:    log,
		Validator: jwttoken.NewJWTServiceAdapter(jwts),
		Gatherer:  reg,
		Handlers: []httptransport.Registrar{
			accounthandler.New(accounts, log),
			offboardinghandler.New(app.offboarding, log),
		},
	}
	if st.db != nil {
		routerCfg.Health = append(routerCfg.Health, httptransport.HealthCheck{Name: "postgres", Check: st.db.PingContext})
	}
	if app.redis != nil {
		routerCfg.Revocations = redis.NewRevocationList(app.redis.Client, revokedPrefix)
		routerCfg.Health = append(routerCfg.Health, httptransport.HealthCheck{Name: "redis", Check: app.redis.Health})
	}
	app.handler = httptransport.NewRouter(routerCfg)
	return app, nil
}

func serve(ctx context.Context, cfg config.Server, jwts *jwttoken.JWTService, log *slog.Logger) error {
	app, err := build(ctx, cfg, jwts, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := httpserver.New(cfg.Addr, app.handler, cfg.HTTP, log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Run(gctx) })

	g.Go(func() error {
		sched := scheduler.New(app.offboarding,
			scheduler.WithLogger(log),
			scheduler.WithInterval(cfg.Offboarding.SchedulerInterval),
		)
		return ignoreCancel(sched.Run(gctx))
	})

	if app.stores.outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			log.WarnContext(ctx, "audit topic bootstrap failed", "error", err)
		}
		relay := worker.NewRelay(app.stores.outbox, producer, app.stores.tx,
			worker.WithLogger(log),
			worker.WithInterval(cfg.Kafka.RelayInterval),
		)
		g.Go(func() error { return ignoreCancel(relay.Run(gctx)) })
	}

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
