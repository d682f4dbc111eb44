package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/obsq/internal/api"
	"github.com/mattjoyce/obsq/internal/journal"
	"github.com/mattjoyce/obsq/internal/config"
	"github.com/mattjoyce/obsq/internal/log"
	"github.com/mattjoyce/obsq/internal/queue"
)

var runMode string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Echo typed lines through the queue",
	Long: "Read lines from stdin and push each one into the queue. A consumer " +
		"echoes every line; typing an enable word registers a second consumer " +
		"and a disable word removes it again.",
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "queue mode: threaded or cooperative (overrides queue.mode)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runMode != "" {
		cfg.Queue.Mode = runMode
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openPipeline(ctx, cfg, log.Get())
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.API.Enabled {
		// Items posted over HTTP must not wait for the next typed line.
		p.startDriving(defaultDriveInterval)
		srv := api.New(api.Config{Listen: cfg.API.Listen, QueueName: cfg.Queue.Name}, p.queue, p.hub, log.Get())
		if p.db != nil {
			srv.WithJournal(journal.New(p.db))
		}
		go func() {
			if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("api server stopped", "error", err)
			}
		}()
	}

	return runLines(cmd.InOrStdin(), cmd.OutOrStdout(), p, cfg.Demo)
}

// runLines is the interactive loop. It returns on an exit word or at the end
// of in, after printing the closing line. It does not close the queue.
func runLines(in io.Reader, out io.Writer, p *pipeline, demo config.DemoConfig) error {
	w := &syncWriter{w: out}
	p.queue.Add(&echo{out: w, q: p.queue, demo: demo})

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, demo.Prompt)
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if slices.Contains(demo.ExitWords, line) {
			break
		}

		p.push(line, "stdin")
		if p.queue.Mode() == queue.ModeCooperative {
			p.queue.Drive()
		} else if demo.EchoDelay > 0 {
			time.Sleep(demo.EchoDelay)
		}
	}

	fmt.Fprintln(w, "\nDone...")
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// echo prints every line and toggles the magic consumer on enable and
// disable words.
type echo struct {
	out  io.Writer
	q    *queue.Queue[string]
	demo config.DemoConfig
}

func (e *echo) Consume(line *string) error {
	if _, err := fmt.Fprintf(e.out, "  >> You typed: %s\n", *line); err != nil {
		return err
	}
	switch {
	case slices.Contains(e.demo.EnableWords, *line):
		e.q.Add(magic{out: e.out})
	case slices.Contains(e.demo.DisableWords, *line):
		e.q.Remove(magic{})
	}
	return nil
}

type magic struct {
	out io.Writer
}

func (m magic) Consume(*string) error {
	_, err := fmt.Fprintln(m.out, "  ## magic! -- ")
	return err
}

// syncWriter serializes the prompt and the worker goroutine's output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}
