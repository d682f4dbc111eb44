// Package doctor checks an obsq configuration and reports every problem it
// finds instead of stopping at the first.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/mattjoyce/obsq/internal/config"
	"github.com/mattjoyce/obsq/internal/lock"
	"github.com/mattjoyce/obsq/internal/queue"
	"github.com/mattjoyce/obsq/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a configuration and the host it will run on.
type Doctor struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateService(r)
	d.validateQueue(r)
	d.validateDemo(r)
	d.validateJournal(r)
	d.validateAPI(r)
	d.warnMissingEnvVars(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateService(r *Result) {
	switch d.cfg.Service.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		d.addError(r, "service", "service.log_level",
			fmt.Sprintf("must be one of debug, info, warn, error (got %q)", d.cfg.Service.LogLevel))
	}
	if d.cfg.Service.LogFormat != "json" && d.cfg.Service.LogFormat != "text" {
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("must be json or text (got %q)", d.cfg.Service.LogFormat))
	}
}

func (d *Doctor) validateQueue(r *Result) {
	if strings.TrimSpace(d.cfg.Queue.Name) == "" {
		d.addError(r, "queue", "queue.name", "queue name is required")
	}
	if _, err := queue.ParseMode(d.cfg.Queue.Mode); err != nil {
		d.addError(r, "queue", "queue.mode", err.Error())
	}
}

// validateDemo checks the line loop's word lists and pacing.
func (d *Doctor) validateDemo(r *Result) {
	demo := d.cfg.Demo

	if demo.EchoDelay < 0 {
		d.addError(r, "demo", "demo.echo_delay", "must not be negative")
	}
	if demo.EchoDelay == 0 && d.cfg.Queue.Mode == queue.ModeThreaded.String() {
		d.addWarning(r, "demo", "demo.echo_delay",
			"threaded mode with no echo delay; consumer output may land after the next prompt")
	}
	if len(demo.ExitWords) == 0 {
		d.addError(r, "demo", "demo.exit_words", "at least one exit word is required")
	}
	if len(demo.EnableWords) == 0 {
		d.addWarning(r, "demo", "demo.enable_words", "no enable words; the magic consumer can never be registered")
	}

	owner := make(map[string]string)
	for _, group := range []struct {
		field string
		words []string
	}{
		{"demo.exit_words", demo.ExitWords},
		{"demo.enable_words", demo.EnableWords},
		{"demo.disable_words", demo.DisableWords},
	} {
		for _, w := range group.words {
			if w == "" {
				d.addWarning(r, "demo", group.field, "empty word matches a blank line")
				continue
			}
			if prev, ok := owner[w]; ok && prev != group.field {
				d.addError(r, "demo", group.field, fmt.Sprintf("%q is already used by %s", w, prev))
				continue
			}
			owner[w] = group.field
		}
	}
}

func (d *Doctor) validateJournal(r *Result) {
	if !d.cfg.Journal.Enabled {
		return
	}
	path := d.cfg.Journal.Path
	if path == "" {
		d.addError(r, "journal", "journal.path", "journal.path is required when the journal is enabled")
		return
	}
	if err := storage.CheckLocal(path); err != nil {
		d.addError(r, "journal", "journal.path", err.Error())
	}

	lockPath := lock.PathFor(path)
	if lock.Held(lockPath) {
		msg := "journal is in use by another process"
		if pid, ok := lock.Holder(lockPath); ok {
			msg = fmt.Sprintf("journal is in use by pid %d", pid)
		}
		d.addWarning(r, "journal", "journal.path", msg)
	}
}

func (d *Doctor) validateAPI(r *Result) {
	api := d.cfg.API
	if api.FeedSize < 0 {
		d.addError(r, "api", "api.feed_size", "must not be negative")
	}
	if !api.Enabled {
		return
	}
	if api.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when the API is enabled")
		return
	}
	host, _, err := net.SplitHostPort(api.Listen)
	if err != nil {
		d.addError(r, "api", "api.listen", fmt.Sprintf("invalid listen address %q: %v", api.Listen, err))
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		d.addWarning(r, "api", "api.listen", "API has no authentication and listens on all interfaces")
	}
}

// warnMissingEnvVars warns about ${VAR} references left in string settings.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	envVarRe := regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

	fields := map[string]string{
		"queue.name":   d.cfg.Queue.Name,
		"journal.path": d.cfg.Journal.Path,
		"api.listen":   d.cfg.API.Listen,
	}
	for _, field := range []string{"queue.name", "journal.path", "api.listen"} {
		for _, m := range envVarRe.FindAllStringSubmatch(fields[field], -1) {
			if os.Getenv(m[1]) == "" {
				d.addWarning(r, "env_vars", field, fmt.Sprintf("environment variable ${%s} not set", m[1]))
			}
		}
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}
	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
