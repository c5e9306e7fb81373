// Command posagent runs beside a till: it keeps the offline queue replaying,
// mirrors the catalog for offline lookups, and lets support staff inspect
// and move the queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/offline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	cfg        *offline.AgentConfig
	log        *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "posagent",
	Short: "Offline queue and catalog agent for POS tills",
	Long: `Keeps sales flowing when the connection drops.

Configuration is read from posagent.yaml and POSAGENT_* environment
variables, e.g. POSAGENT_SERVER_BASE_URL and POSAGENT_SERVER_TOKEN.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := offline.LoadAgentConfig(configPath)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		l, err := logger.New(&logger.Config{
			Level:      c.Log.Level,
			Format:     c.Log.Format,
			Output:     "stderr",
			TimeFormat: "2006-01-02 15:04:05",
		}, logger.WithName("posagent"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, log = c, l
		return nil
	},
}

// agent is what every command opens
type agent struct {
	store  *offline.Store
	client *offline.Client
	queue  *offline.Queue
}

func openAgent() (*agent, error) {
	store, err := offline.OpenStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	client, err := offline.NewClient(offline.ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Token:   offline.StaticToken(cfg.Server.Token),
		Timeout: cfg.Server.Timeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &agent{
		store:  store,
		client: client,
		queue:  offline.NewQueue(store, client, cfg.Queue, log),
	}, nil
}

func withAgent(fn func(ctx context.Context, a *agent, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openAgent()
		if err != nil {
			return err
		}
		defer func() {
			if err := a.store.Close(); err != nil {
				log.Warn("Failed to close store", zap.Error(err))
			}
		}()
		return fn(cmd.Context(), a, args)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch connectivity, replay the queue and keep the catalog fresh",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, a *agent, _ []string) error {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cache := offline.NewCatalogCache(a.store, a.client, cfg.Catalog.PageSize, log)
		monitor := offline.NewMonitor(a.client, a.queue, cfg.Monitor.Interval, log)
		resync := make(chan struct{}, 1)
		monitor.OnChange = func(online bool) {
			if online {
				select {
				case resync <- struct{}{}:
				default:
				}
			}
		}

		log.Info("posagent started",
			zap.String("server", cfg.Server.BaseURL),
			zap.String("store", cfg.Store.Path))

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return monitor.Run(ctx) })
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Catalog.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				case <-resync:
				}
				if !monitor.Online() {
					continue
				}
				if _, err := cache.Sync(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Catalog sync failed", zap.Error(err))
				}
			}
		})
		err := g.Wait()
		log.Info("posagent stopped")
		return err
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print queue statistics",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, a *agent, _ []string) error {
		stats, err := a.queue.Stats(ctx)
		if err != nil {
			return err
		}
		cached, err := offline.NewCatalogCache(a.store, a.client, 0, log).Count(ctx)
		if err != nil {
			return err
		}
		out := struct {
			offline.Stats
			CachedVariants int64 `json:"cached_variants"`
		}{stats, cached}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}),
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Replay pending operations now, ignoring any backoff",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, a *agent, _ []string) error {
		a.queue.ResetBackoff()
		res, err := a.queue.Flush(ctx)
		fmt.Printf("sent: %d dead: %d remaining: %d\n", res.Sent, res.Dead, res.Remaining)
		return err
	}),
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull catalog changes into the local cache",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, a *agent, _ []string) error {
		n, err := offline.NewCatalogCache(a.store, a.client, cfg.Catalog.PageSize, log).Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("variants updated: %d\n", n)
		return nil
	}),
}

var deadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List operations the server rejected",
	Args:  cobra.NoArgs,
	RunE: withAgent(func(ctx context.Context, a *agent, _ []string) error {
		ops, err := a.queue.Dead(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tCREATED\tATTEMPTS\tERROR")
		for _, op := range ops {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				op.ID, op.Kind, op.CreatedAt.Local().Format(time.DateTime), op.Attempts, op.LastError)
		}
		return w.Flush()
	}),
}

var retryCmd = &cobra.Command{
	Use:   "retry ID",
	Short: "Put a dead operation back in the queue",
	Args:  cobra.ExactArgs(1),
	RunE: withAgent(func(ctx context.Context, a *agent, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid operation id %q", args[0])
		}
		op, err := a.queue.Retry(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("requeued %s (%s)\n", op.ID, op.Kind)
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write pending and dead operations to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: withAgent(func(ctx context.Context, a *agent, args []string) error {
		f, err := os.OpenFile(args[0], os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		n, err := a.queue.Export(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		log.Info("Queue exported", zap.Int("operations", n), zap.String("file", args[0]))
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add operations from an export to this device's queue",
	Args:  cobra.ExactArgs(1),
	RunE: withAgent(func(ctx context.Context, a *agent, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := a.queue.Import(ctx, f)
		if err != nil {
			return err
		}
		log.Info("Queue imported", zap.Int("operations", n), zap.String("file", args[0]))
		return nil
	}),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./posagent.yaml)")
	rootCmd.AddCommand(runCmd, statusCmd, flushCmd, syncCmd, deadCmd, retryCmd, exportCmd, importCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
