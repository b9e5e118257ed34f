// Package daemon composes the wazappd process: store, directory, protocol
// adapter, ingest engine, and outbox, wired through fx with proper
// lifecycle ordering.
package daemon

import (
	"context"

	"github.com/wazapp/wazappd/internal/bus"
	"github.com/wazapp/wazappd/internal/config"
	"github.com/wazapp/wazappd/internal/contacts"
	"github.com/wazapp/wazappd/internal/ingest"
	"github.com/wazapp/wazappd/internal/legacy"
	"github.com/wazapp/wazappd/internal/lock"
	"github.com/wazapp/wazappd/internal/logging"
	"github.com/wazapp/wazappd/internal/outbox"
	"github.com/wazapp/wazappd/internal/session"
	"github.com/wazapp/wazappd/internal/store"
	"github.com/wazapp/wazappd/internal/wa"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideConfig,
			provideLock,
			provideStore,
			provideAdapter,
			provideDirectory,
			provideEngine,
			provideSender,
			provideImporter,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		logger.Info("no global config, using defaults", zap.Error(err))
		return &config.Config{}
	}
	return cfg
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, b *bus.Bus, _ *lock.Lock, logger *zap.Logger) (*store.Store, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return store.New(db, b), nil
}

func provideAdapter(p Params, b *bus.Bus, logger *zap.Logger) (*wa.Adapter, error) {
	return wa.NewAdapter(context.Background(), p.SessionName, b, logger)
}

func provideDirectory(p Params, s *store.Store, b *bus.Bus, adapter *wa.Adapter, logger *zap.Logger) *contacts.Directory {
	return contacts.New(s, b, adapter, session.PictureCacheDir(p.SessionName), logger)
}

func provideEngine(s *store.Store, d *contacts.Directory, b *bus.Bus, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(s, d, b, logger)
}

func provideSender(s *store.Store, adapter *wa.Adapter, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(s, adapter, b, adapter.OwnJID, logger)
}

func provideImporter(s *store.Store, logger *zap.Logger) *legacy.Importer {
	return legacy.NewImporter(s, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	cfg *config.Config,
	s *store.Store,
	d *contacts.Directory,
	adapter *wa.Adapter,
	engine *ingest.Engine,
	sender *outbox.Sender,
	importer *legacy.Importer,
	lk *lock.Lock,
	b *bus.Bus,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ctx := context.Background()

			// One-time legacy import; idempotent, so a crash mid-run is safe.
			if cfg.LegacyLogDir != "" {
				res, err := importer.Run(ctx, cfg.LegacyContactsFile, cfg.LegacyLogDir)
				if err != nil {
					logger.Error("legacy import failed", zap.Error(err))
				} else if res.Messages > 0 || res.Contacts > 0 {
					logger.Info("legacy data imported",
						zap.Int("contacts", res.Contacts),
						zap.Int("messages", res.Messages))
				}
			}

			// Start ingest engine (subscribes to wa.* bus events).
			engine.Start(ctx)

			// Register event handler for whatsmeow events.
			handler := wa.NewEventHandler(b, adapter.OwnJID, logger)
			adapter.RegisterEventHandler(handler.Handle)

			// Start outbox sender.
			sender.Start(ctx)

			if adapter.IsLoggedIn() {
				go func() {
					if err := adapter.Connect(); err != nil {
						logger.Error("auto-connect failed", zap.Error(err))
						return
					}
					subscribeAllPresence(ctx, d, adapter, logger)
				}()
			} else {
				logger.Info("not paired yet, waiting for QR auth")
			}

			contactCount, _ := s.ContactCount(ctx)
			messageCount, _ := s.MessageCount(ctx)
			logger.Info("daemon started",
				zap.Int64("contacts", contactCount),
				zap.Int64("messages", messageCount))
			return nil
		},
		OnStop: func(_ context.Context) error {
			sender.Stop()
			engine.Stop()
			adapter.Disconnect()
			if err := s.Close(); err != nil {
				logger.Warn("store close failed", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("lock release failed", zap.Error(err))
			}
			_ = logger.Sync()
			return nil
		},
	})
}

// subscribeAllPresence asks the server for presence updates of every known
// individual contact. Groups have no presence.
func subscribeAllPresence(ctx context.Context, d *contacts.Directory, adapter *wa.Adapter, logger *zap.Logger) {
	ids, err := d.ConversationIDs(ctx)
	if err != nil {
		logger.Warn("presence subscription skipped", zap.Error(err))
		return
	}
	for _, id := range ids {
		if contacts.IsGroup(id) {
			continue
		}
		if err := adapter.SubscribePresence(ctx, id); err != nil {
			logger.Warn("presence subscribe failed", zap.String("conversation_id", id), zap.Error(err))
		}
	}
}
