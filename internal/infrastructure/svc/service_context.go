package svc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/application/port"
	"github.com/smart845/QuantumTrader/internal/application/service"
	"github.com/smart845/QuantumTrader/internal/application/usecase/scanner"
	domainservice "github.com/smart845/QuantumTrader/internal/domain/service"
	"github.com/smart845/QuantumTrader/internal/infrastructure/config"
	"github.com/smart845/QuantumTrader/internal/infrastructure/gecko"
	"github.com/smart845/QuantumTrader/internal/infrastructure/metrics"
	"github.com/smart845/QuantumTrader/internal/infrastructure/storage/composite"
	pgrepo "github.com/smart845/QuantumTrader/internal/infrastructure/storage/postgres"
	redisrepo "github.com/smart845/QuantumTrader/internal/infrastructure/storage/redis"
	sqliterepo "github.com/smart845/QuantumTrader/internal/infrastructure/storage/sqlite"
	"github.com/smart845/QuantumTrader/internal/interfaces/console"
	"github.com/smart845/QuantumTrader/internal/interfaces/wsfeed"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	market   port.MarketData
	store    *composite.Repo
	registry *prometheus.Registry
	metrics  *metrics.Scan

	// 输出端口
	sinks []port.Sink
	hub   *wsfeed.Hub

	// 应用业务组件（依赖基础设施）
	Boards  *service.BoardService
	Scanner *scanner.Service

	// set once Attach has run; the feed refresh endpoints use it
	handle atomic.Pointer[scanner.Handle]

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	return NewWithMarket(ctx, cfg, nil)
}

// NewWithMarket is New with an injected market data provider; nil builds the
// gecko client from config.
func NewWithMarket(ctx context.Context, cfg *config.Config, market port.MarketData) (*ServiceContext, error) {
	if market == nil {
		market = gecko.New(gecko.Config{
			BaseURL:         cfg.Gecko.BaseURL,
			APIKey:          cfg.Gecko.APIKey,
			Timeout:         time.Duration(cfg.Gecko.TimeoutSec) * time.Second,
			RequestsPerSec:  cfg.Gecko.RequestsPerSec,
			Burst:           cfg.Gecko.Burst,
			PerPageMax:      cfg.Gecko.PerPageMax,
			BreakerFailures: uint32(max(cfg.Gecko.BreakerFailures, 0)),
			BreakerCooldown: time.Duration(cfg.Gecko.BreakerCooldownSec) * time.Second,
		})
	}

	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		market:      market,
		closerChain: make([]func() error, 0),
	}

	// 初始化所有组件，按依赖顺序
	if err := sc.initializeComponents(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents 初始化所有应用组件
func (sc *ServiceContext) initializeComponents() error {
	// 0. 存储层
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	// 1. 指标
	sc.metrics, sc.registry = metrics.NewScan(nil)

	// 2. 输出端
	if sc.Config.ConsoleEnabled() {
		sc.sinks = append(sc.sinks, console.NewSink())
	}
	if sc.Config.Feed.Enabled {
		sc.hub = wsfeed.NewHub(sc.RefreshNow)
		sc.sinks = append(sc.sinks, sc.hub)
	}
	if len(sc.sinks) == 0 && sc.store.Len() == 0 {
		return ErrNoSinksEnabled
	}
	sc.Boards = service.NewBoardService(sc.store, sc.sinks...)

	// 3. 扫描器
	sc.Scanner = scanner.NewService(sc.BuildScannerServiceDeps())

	log.Info().
		Int("sinks", len(sc.sinks)).
		Int("stores", sc.store.Len()).
		Msg("✓ All components initialized")
	return nil
}

// initializeStorage 初始化存储层 (Redis / SQLite / Postgres)
func (sc *ServiceContext) initializeStorage() error {
	var stores []port.BoardStore

	if sc.Config.Redis.Enabled {
		repo, err := sc.initRedis()
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		stores = append(stores, repo)
	}
	if sc.Config.SQLite.Enabled {
		repo, err := sc.initSQLite()
		if err != nil {
			return fmt.Errorf("sqlite initialization failed: %w", err)
		}
		stores = append(stores, repo)
	}
	if sc.Config.Postgres.Enabled {
		repo, err := sc.initPostgres()
		if err != nil {
			return fmt.Errorf("postgres initialization failed: %w", err)
		}
		stores = append(stores, repo)
	}

	sc.store = composite.New(stores...)
	return nil
}

// initRedis 初始化 Redis 连接
func (sc *ServiceContext) initRedis() (*redisrepo.Repo, error) {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second
	repo := redisrepo.New(rdb, sc.Config.Redis.Prefix, ttl, sc.Config.Redis.Channel)

	// 注册关闭回调
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Str("key", repo.BoardKey()).
		Msg("✓ Redis initialized")
	return repo, nil
}

// initSQLite 初始化 SQLite 数据库
func (sc *ServiceContext) initSQLite() (*sqliterepo.Repo, error) {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite repo creation failed: %w", err)
	}

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", sc.Config.SQLite.Path).
		Msg("✓ SQLite initialized")
	return repo, nil
}

func (sc *ServiceContext) initPostgres() (*pgrepo.Repo, error) {
	repo, err := pgrepo.New(sc.Config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres repo creation failed: %w", err)
	}

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("✓ Postgres initialized")
	return repo, nil
}

// BuildScannerServiceDeps 构建扫描服务所需的所有依赖
func (sc *ServiceContext) BuildScannerServiceDeps() scanner.ServiceDeps {
	return scanner.ServiceDeps{
		Universe:   sc.market,
		Quotes:     sc.market,
		Classifier: domainservice.NewHintClassifier(sc.Config.Scan.DEXHints),
		Metrics:    sc.metrics,
		Config: scanner.Config{
			TopLimit:        sc.Config.Scan.TopLimit,
			Concurrency:     sc.Config.Scan.Concurrency,
			BatchDelay:      sc.Config.BatchDelay(),
			MinSpreadPct:    sc.Config.Scan.MinSpreadPct,
			RescanInterval:  sc.Config.RescanInterval(),
			StartDelay:      sc.Config.StartDelay(),
			QuoteCurrencies: sc.Config.Scan.QuoteCurrencies,
		},
	}
}

// Start restores the last board, starts the feed server if enabled and
// attaches a scanner bound to ctx.
func (sc *ServiceContext) Start(ctx context.Context) *scanner.Handle {
	restoreCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := sc.Boards.Restore(restoreCtx); err != nil {
		log.Warn().Err(err).Msg("restore last board failed")
	}
	cancel()

	if sc.hub != nil {
		wsfeed.NewServer(sc.hub, sc.Boards, sc.registry, sc.RefreshNow).Serve(ctx, sc.Config.Feed.Addr)
	}

	h := sc.Scanner.Attach(ctx, sc.Boards.OnResult, sc.Boards.OnError)
	sc.handle.Store(h)
	return h
}

// RefreshNow supersedes the running scan, if a scanner is attached.
func (sc *ServiceContext) RefreshNow() {
	if h := sc.handle.Load(); h != nil {
		h.RefreshNow()
	}
}

func (sc *ServiceContext) Registry() *prometheus.Registry { return sc.registry }

// Close 关闭 ServiceContext 中的所有资源
// 应该在应用退出时调用
func (sc *ServiceContext) Close() error {
	if h := sc.handle.Load(); h != nil {
		h.Detach()
	}
	if sc.hub != nil {
		_ = sc.hub.Close()
	}

	// 按照相反的顺序关闭所有资源
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
