package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/obsq/internal/api"
	"github.com/mattjoyce/obsq/internal/journal"
	"github.com/mattjoyce/obsq/internal/log"
)

var (
	serveListen        string
	serveDriveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept items over HTTP",
	Long: "Run the queue behind an HTTP front end. POST /items pushes one item; " +
		"GET /stats and GET /events report on the queue.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides api.listen)")
	serveCmd.Flags().DurationVar(&serveDriveInterval, "drive-interval", defaultDriveInterval, "how often to drive a cooperative queue")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.API.Listen = serveListen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.WithComponent("serve")
	p, err := openPipeline(ctx, cfg, log.Get())
	if err != nil {
		return err
	}
	defer p.Close()

	p.queue.Add(&deliveryLog{logger: log.WithQueue(cfg.Queue.Name)})
	p.startDriving(serveDriveInterval)

	srv := api.New(api.Config{Listen: cfg.API.Listen, QueueName: cfg.Queue.Name}, p.queue, p.hub, log.Get())
	if p.db != nil {
		srv.WithJournal(journal.New(p.db))
	}
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("serve stopped", "pending", p.queue.Size())
	return nil
}

// deliveryLog logs every item the queue delivers.
type deliveryLog struct {
	logger *slog.Logger
}

func (d *deliveryLog) Consume(item *string) error {
	d.logger.Info("item delivered", "bytes", len(*item))
	return nil
}
