// cmd/wizard-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"card-program-wizard/internal/analytics"
	"card-program-wizard/internal/api"
	"card-program-wizard/internal/common/auth"
	"card-program-wizard/internal/common/aws"
	"card-program-wizard/internal/common/camunda"
	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/database"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/common/observability"
	"card-program-wizard/internal/configurations"
	"card-program-wizard/internal/feedback"
	"card-program-wizard/internal/notify"
	"card-program-wizard/internal/program"
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/pkg/registry"

	cc "card-program-wizard/internal/workers/wizard/create-configuration"
	va "card-program-wizard/internal/workers/wizard/validate-answer"
)

// backends holds the optional connections. A nil field means the backend is
// not configured.
type backends struct {
	pg     *database.PostgresClient
	es     *database.ElasticsearchClient
	redis  *database.RedisClient
	zeebe  *camunda.Client
	sns    *aws.SNSClient
	ses    *aws.SESClient
	users  *auth.KeycloakClient
	closer []func() error
}

func (b *backends) Close() {
	for i := len(b.closer) - 1; i >= 0; i-- {
		_ = b.closer[i]()
	}
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("Starting card program wizard", map[string]interface{}{
		"environment": cfg.App.Environment,
		"address":     cfg.Server.Address,
	})

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)
	defer obs.Shutdown()

	ctx := context.Background()

	b, err := connect(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("backend connection failed", zap.Error(err))
	}
	defer b.Close()

	catalog := registry.Default()
	if cfg.Catalog.QuestionsPath != "" {
		catalog, err = registry.LoadRegistry(cfg.Catalog.QuestionsPath)
		if err != nil {
			zapLog.Fatal("question catalog load failed", zap.Error(err))
		}
	}

	deps := buildDependencies(cfg, b, catalog, obs, log)

	var workers []*camunda.Worker
	if b.zeebe != nil {
		workers = startWorkers(cfg, b.zeebe, deps, obs, log)
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(api.NewHandler(deps, cfg.Server, log)),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Shutting down", map[string]interface{}{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}
	log.Info("Shutdown complete", nil)
}

// connect opens every configured backend. Storage backends are retried with
// backoff since they usually start alongside the server.
func connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Database.Postgres.Enabled() {
		err := retryWithBackoff(func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			b.pg = pg
			return nil
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closer = append(b.closer, b.pg.Close)
		log.Info("PostgreSQL connected successfully", nil)
	}

	if cfg.Database.Elasticsearch.Enabled() {
		err := retryWithBackoff(func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			b.es = es
			return es.EnsureIndex(ctx, cfg.Database.Elasticsearch.Index, configurations.IndexMapping)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			b.Close()
			return nil, err
		}
		log.Info("Elasticsearch connected successfully", map[string]interface{}{"index": cfg.Database.Elasticsearch.Index})
	}

	if cfg.Database.Redis.Enabled() {
		err := retryWithBackoff(func() error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				_ = rc.Close()
				return err
			}
			b.redis = rc
			return nil
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closer = append(b.closer, b.redis.Close)
		log.Info("Redis connected successfully", nil)
	}

	if cfg.Camunda.Enabled() {
		err := retryWithBackoff(func() error {
			zb, err := camunda.NewClient(ctx, cfg.Camunda)
			if err != nil {
				return err
			}
			b.zeebe = zb
			return nil
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closer = append(b.closer, b.zeebe.Close)
		log.Info("Zeebe client connected successfully", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})
	}

	aw := cfg.Notifications.AWS
	if aw.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, aw.Region)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sns = sns
	}
	if aw.SES.Enabled {
		ses, err := aws.NewSESClient(ctx, aw.Region)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.ses = ses
	}

	if cfg.Auth.Keycloak.Enabled() {
		b.users = auth.NewKeycloakClient(cfg.Auth.Keycloak, &http.Client{
			Timeout: config.GetDuration(cfg.Auth.Keycloak.Timeout),
		})
	}

	return b, nil
}

// buildDependencies wires the domain services over whichever backends are
// connected. Interfaces stay untyped nil for missing backends.
func buildDependencies(cfg *config.Config, b *backends, catalog *registry.QuestionCatalog, obs *observability.Observability, log logger.Logger) api.Dependencies {
	var notifier notify.Notifier = notify.Nop{}
	if b.sns != nil || b.ses != nil {
		aw := cfg.Notifications.AWS
		notifier = notify.NewAWSNotifier(b.sns, b.ses, notify.AWSConfig{
			TopicARN:   aw.SNS.TopicARN,
			FromEmail:  aw.SES.FromEmail,
			Recipients: aw.SES.Recipients,
		}, log)
	}

	checks := map[string]api.Check{}

	var repo configurations.Repository
	if b.pg != nil {
		repo = configurations.NewPostgresStore(b.pg)
		checks["postgres"] = b.pg.Ping
	}
	opts := []configurations.ServiceOption{configurations.WithNotifier(notifier)}
	if b.es != nil {
		opts = append(opts, configurations.WithIndexer(configurations.NewSearchIndex(b.es.Client, cfg.Database.Elasticsearch.Index)))
		checks["elasticsearch"] = b.es.Ping
	}
	configs := configurations.NewService(repo, log, opts...)

	var events analytics.Store
	var cache redis.Cmdable
	if b.redis != nil {
		events = analytics.NewRedisStore(b.redis.Cmdable(), cfg.Analytics.RedisKey, cfg.Analytics.MaxEvents)
		cache = b.redis.Cmdable()
		checks["redis"] = b.redis.Ping
	}

	if b.zeebe != nil {
		checks["zeebe"] = b.zeebe.HealthCheck
	}

	var users feedback.UserResolver
	if b.users != nil {
		users = b.users
	}

	return api.Dependencies{
		Assistant:       assistant.NewService(cfg.Assistant, log),
		Configurations:  configs,
		Analytics:       analytics.NewRecorder(events, cfg.Analytics, log),
		Feedback:        feedback.NewService(b.pg, users, notifier, log),
		Programs:        program.NewService(cache, program.DefaultTTL, log),
		Catalog:         catalog,
		Observability:   obs,
		ReadinessChecks: checks,
	}
}

func startWorkers(cfg *config.Config, zb *camunda.Client, deps api.Dependencies, obs *observability.Observability, log logger.Logger) []*camunda.Worker {
	var workers []*camunda.Worker

	vaCfg := config.GetWorkerConfig(cfg, va.TaskType)
	vaHandler := va.NewHandler(va.LoadConfig(vaCfg), deps.Assistant, deps.Catalog, log)
	if w := camunda.StartWorker(zb.Zeebe(), va.TaskType, vaCfg, vaHandler.Handle, obs, log); w != nil {
		workers = append(workers, w)
	}

	ccCfg := config.GetWorkerConfig(cfg, cc.TaskType)
	if ccCfg.Enabled && !deps.Configurations.Enabled() {
		log.Warn("create-configuration worker needs PostgreSQL, not starting", nil)
		return workers
	}
	ccHandler := cc.NewHandler(cc.LoadConfig(ccCfg), deps.Configurations, log)
	if w := camunda.StartWorker(zb.Zeebe(), cc.TaskType, ccCfg, ccHandler.Handle, obs, log); w != nil {
		workers = append(workers, w)
	}

	return workers
}
