// internal/platform/di/container.go
package di

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	httpin "splforge/internal/adapters/in/http"
	pgrepo "splforge/internal/adapters/out/db"
	fsrepo "splforge/internal/adapters/out/firestore"
	"splforge/internal/adapters/out/gcs"
	httpout "splforge/internal/adapters/out/http"
	"splforge/internal/adapters/out/memory"
	app "splforge/internal/application/issuance"
	"splforge/internal/application/usecase"
	dom "splforge/internal/domain/issuance"
	"splforge/internal/infra/arweave"
	"splforge/internal/infra/config"
	"splforge/internal/infra/journal"
	"splforge/internal/infra/lock"
	"splforge/internal/infra/metrics"
	"splforge/internal/infra/solana"
)

// Options tune what Build wires for a particular command.
type Options struct {
	// Approve gates every wallet signature (CLI confirmation prompt). nil signs without asking.
	Approve solana.ApproveFunc
	// NeedStore forces the record store even when the driver is memory (serve).
	NeedStore bool
}

// Container は cmd から使う依存オブジェクトの束。
type Container struct {
	Config *config.Config

	Network    *solana.Network
	Pipeline   *app.Pipeline
	Metrics    *metrics.Observer
	IssuanceUC *usecase.IssuanceUsecase
	RecordUC   *usecase.RecordUsecase
	Router     http.Handler

	cleanupFn []func()
}

// Close は終了時に呼んで安全にリソースを閉じる。後に開いたものから閉じる。
func (c *Container) Close() {
	for i := len(c.cleanupFn) - 1; i >= 0; i-- {
		c.cleanupFn[i]()
	}
	c.cleanupFn = nil
}

func (c *Container) onClose(fn func()) {
	c.cleanupFn = append(c.cleanupFn, fn)
}

// Build は DIコンテナを初期化して返す。
// 任意の依存（redis, journal, recorder, uploader）は失敗しても WARN を出して縮退する。
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	freeze, err := app.ParseFreezePolicy(cfg.FreezePolicy)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}

	// ------------------------------------------------------------
	// 1. Ledger / metrics / pipeline
	// ------------------------------------------------------------
	c.Network = solana.NewNetwork(cfg.RPCEndpoint, cfg.Commitment)

	var observers []app.Observer
	if cfg.MetricsEnabled {
		c.Metrics = metrics.NewObserver()
		observers = append(observers, c.Metrics)
	}
	c.Pipeline = app.New(app.Options{
		FreezePolicy:   freeze,
		Commitment:     app.Commitment(cfg.Commitment),
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.PollInterval,
	}, observers...)

	// ------------------------------------------------------------
	// 2. Record store (serve / in-process recorder)
	// ------------------------------------------------------------
	if opts.NeedStore || cfg.StoreDriver != "memory" {
		repo, err := c.buildRecordRepository(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.RecordUC = usecase.NewRecordUsecase(repo)
	}

	// ------------------------------------------------------------
	// 3. Issuance usecase
	// ------------------------------------------------------------
	wallet, err := c.buildWalletProvider(ctx, opts.Approve)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.IssuanceUC = usecase.NewIssuanceUsecase(c.Pipeline, c.Network, wallet, c.buildRecorder())
	c.IssuanceUC.Locker = c.buildLocker(ctx)
	c.IssuanceUC.Journal = c.buildJournal()
	c.IssuanceUC.Uploader = c.buildUploader(ctx)

	// ------------------------------------------------------------
	// 4. Inbound HTTP
	// ------------------------------------------------------------
	deps := httpin.RouterDeps{RecordUC: c.RecordUC, AllowedOrigins: cfg.AllowedOrigins}
	if c.Metrics != nil {
		deps.Metrics = c.Metrics.Handler()
	}
	c.Router = httpin.NewRouter(deps)

	log.Printf("[boot] rpc=%s commitment=%s freeze=%s store=%s metrics=%t",
		cfg.RPCEndpoint, cfg.Commitment, freeze, cfg.StoreDriver, cfg.MetricsEnabled)
	return c, nil
}

func (c *Container) buildRecordRepository(ctx context.Context) (dom.RecordRepository, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		// Connection pool tuning
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		c.onClose(func() { _ = db.Close() })

		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
		repo := pgrepo.NewIssuanceRecordRepositoryPG(db)
		if err := repo.Migrate(pctx); err != nil {
			return nil, fmt.Errorf("migrate issuance_records: %w", err)
		}
		log.Println("[boot] record store: postgres")
		return repo, nil

	case "firestore":
		var copts []option.ClientOption
		if cfg.GCPCreds != "" {
			copts = append(copts, option.WithCredentialsFile(cfg.GCPCreds))
		}
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, copts...)
		if err != nil {
			return nil, fmt.Errorf("firestore.NewClient: %w", err)
		}
		c.onClose(func() { _ = client.Close() })
		log.Printf("[boot] record store: firestore project=%s", cfg.FirestoreProjectID)
		return fsrepo.NewIssuanceRecordRepositoryFS(client), nil

	default:
		log.Println("[boot] record store: memory (records are lost on exit)")
		return memory.NewIssuanceRecordRepositoryMem(), nil
	}
}

func (c *Container) buildWalletProvider(ctx context.Context, approve solana.ApproveFunc) (usecase.WalletProvider, error) {
	cfg := c.Config

	if secretID := strings.TrimSpace(cfg.WalletSecretID); secretID != "" {
		var copts []option.ClientOption
		if cfg.GCPCreds != "" {
			copts = append(copts, option.WithCredentialsFile(cfg.GCPCreds))
		}
		sm, err := solana.NewWalletSecretProviderSM(ctx, cfg.FirestoreProjectID, copts...)
		if err != nil {
			return nil, fmt.Errorf("wallet secret provider: %w", err)
		}
		c.onClose(func() { _ = sm.Close() })
		return func(ctx context.Context) (app.Wallet, error) {
			w, err := sm.Wallet(ctx, secretID, approve)
			if err != nil {
				return nil, err
			}
			return w, nil
		}, nil
	}

	path := config.ExpandHome(cfg.KeypairPath)
	return func(context.Context) (app.Wallet, error) {
		w, err := solana.NewKeypairFileWallet(path, approve)
		if err != nil {
			return nil, err
		}
		return w, nil
	}, nil
}

func (c *Container) buildRecorder() app.Recorder {
	if url := strings.TrimSpace(c.Config.RecorderURL); url != "" {
		return httpout.NewCreateTokenClient(url)
	}
	if c.RecordUC != nil {
		return c.RecordUC
	}
	log.Println("[boot] WARN: RECORDER_URL is empty; issuances will not be recorded")
	return nil
}

func (c *Container) buildLocker(ctx context.Context) usecase.Locker {
	addr := strings.TrimSpace(c.Config.RedisAddr)
	if addr == "" {
		return lock.NewMemoryLocker()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Printf("[boot] WARN: redis ping failed, fallback to in-process lock: %v", err)
		_ = client.Close()
		return lock.NewMemoryLocker()
	}
	c.onClose(func() { _ = client.Close() })
	return lock.NewRedisLocker(client, "splforge:")
}

func (c *Container) buildJournal() usecase.Journal {
	path := strings.TrimSpace(c.Config.JournalPath)
	if path == "" {
		return nil
	}
	store, err := journal.OpenBoltStore(config.ExpandHome(path))
	if err != nil {
		log.Printf("[boot] WARN: journal disabled: %v", err)
		return nil
	}
	c.onClose(func() { _ = store.Close() })
	return store
}

func (c *Container) buildUploader(ctx context.Context) usecase.MetadataUploader {
	cfg := c.Config
	if cfg.ArweaveBaseURL != "" {
		return arweave.NewHTTPUploader(cfg.ArweaveBaseURL, cfg.ArweaveAPIKey)
	}
	if cfg.GCSBucket != "" {
		var copts []option.ClientOption
		if cfg.GCPCreds != "" {
			copts = append(copts, option.WithCredentialsFile(cfg.GCPCreds))
		}
		client, err := storage.NewClient(ctx, copts...)
		if err != nil {
			log.Printf("[boot] WARN: storage.NewClient failed, metadata upload disabled: %v", err)
			return nil
		}
		c.onClose(func() { _ = client.Close() })
		return gcs.NewMetadataUploaderGCS(client, cfg.GCSBucket, "metadata/")
	}
	return nil
}
