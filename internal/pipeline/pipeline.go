// Package pipeline runs one scraping cycle: log in, search, and for every
// listing read the details, generate a message and send it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/flatscraper/internal/anschreiben"
	"github.com/jmylchreest/flatscraper/internal/listing"
	"github.com/jmylchreest/flatscraper/internal/logger"
	"github.com/jmylchreest/flatscraper/internal/platform"
)

// Status is the result of processing one listing.
type Status string

const (
	// StatusSent means the message was generated and submitted.
	StatusSent Status = "sent"
	// StatusGenerated means the message was generated but sending was disabled.
	StatusGenerated Status = "generated"
	// StatusSkipped means the listing was contacted before or unreadable.
	StatusSkipped Status = "skipped"
	// StatusFailed means generation or sending failed.
	StatusFailed Status = "failed"
)

// Outcome records what happened to one listing.
type Outcome struct {
	Listing     listing.Listing  `json:"listing" yaml:"listing"`
	Details     *listing.Details `json:"details,omitempty" yaml:"details,omitempty"`
	Status      Status           `json:"status" yaml:"status"`
	Reason      string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message     string           `json:"message,omitempty" yaml:"message,omitempty"`
	ProcessedAt time.Time        `json:"processed_at" yaml:"processed_at"`
}

// Report summarises one cycle.
type Report struct {
	Platform   string    `json:"platform" yaml:"platform"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	NoSend     bool      `json:"no_send" yaml:"no_send"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Found      int       `json:"found" yaml:"found"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Generator produces the message for a listing. *anschreiben.Generator
// implements it.
type Generator interface {
	Generate(ctx context.Context, req listing.GenerationRequest, onRetry anschreiben.RetryObserver) (string, error)
	Model() string
}

// Options configures a Runner.
type Options struct {
	// NoSend generates messages without submitting them.
	NoSend bool
	// IncludeAll disables the age filter.
	IncludeAll bool
	// DriveLink is appended to every generated message.
	DriveLink string
}

// Hooks let the caller render progress. All fields are optional.
type Hooks struct {
	OnSearchDone func(found int)
	OnListing    func(index, total int, l listing.Listing)
	OnDetails    func(d *listing.Details)
	OnRetry      anschreiben.RetryObserver
	OnOutcome    func(o Outcome)
}

// Runner executes cycles against one platform.
type Runner struct {
	platform  platform.Platform
	generator Generator
	opts      Options
	hooks     Hooks
	now       func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(p platform.Platform, gen Generator, opts Options, hooks Hooks) *Runner {
	return &Runner{
		platform:  p,
		generator: gen,
		opts:      opts,
		hooks:     hooks,
		now:       time.Now,
	}
}

// Run executes one cycle. Login and search failures abort the cycle; every
// per-listing failure is recorded in the report and the cycle moves on. When
// ctx is cancelled mid-cycle the partial report is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	log := logger.Component("pipeline")

	report := &Report{
		Platform:  r.platform.Name(),
		Model:     r.generator.Model(),
		NoSend:    r.opts.NoSend,
		StartedAt: r.now(),
	}
	defer func() { report.FinishedAt = r.now() }()

	if err := r.platform.Login(ctx); err != nil {
		return report, fmt.Errorf("login: %w", err)
	}

	listings, err := r.platform.Search(ctx, r.opts.IncludeAll)
	if err != nil {
		return report, fmt.Errorf("search: %w", err)
	}
	report.Found = len(listings)
	if r.hooks.OnSearchDone != nil {
		r.hooks.OnSearchDone(len(listings))
	}
	log.Info("search finished", "found", len(listings), "include_all", r.opts.IncludeAll)

	for i, l := range listings {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if r.hooks.OnListing != nil {
			r.hooks.OnListing(i+1, len(listings), l)
		}

		o := r.process(ctx, l)
		report.Outcomes = append(report.Outcomes, o)
		if r.hooks.OnOutcome != nil {
			r.hooks.OnOutcome(o)
		}
		log.Info("listing processed", "ad_id", l.AdID, "status", o.Status, "reason", o.Reason)
	}

	return report, nil
}

func (r *Runner) process(ctx context.Context, l listing.Listing) Outcome {
	o := Outcome{Listing: l}

	details, err := r.platform.ExtractDetails(ctx, l.URL)
	if err != nil {
		o.Status = StatusSkipped
		o.Reason = skipReason(err)
		o.ProcessedAt = r.now()
		return o
	}
	o.Details = details
	if r.hooks.OnDetails != nil {
		r.hooks.OnDetails(details)
	}

	msg, err := r.generator.Generate(ctx, details.Request(r.opts.DriveLink), r.hooks.OnRetry)
	if err != nil {
		o.Status = StatusFailed
		o.Reason = err.Error()
		o.ProcessedAt = r.now()
		return o
	}
	o.Message = msg

	switch {
	case r.opts.NoSend:
		o.Status = StatusGenerated
		o.Reason = "sending disabled"
	case r.platform.SendMessage(ctx, l.URL, msg):
		o.Status = StatusSent
	default:
		o.Status = StatusFailed
		o.Reason = "message not sent"
	}
	o.ProcessedAt = r.now()
	return o
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, platform.ErrAlreadyContacted):
		return "already contacted"
	case errors.Is(err, platform.ErrNoDetails):
		return "details could not be extracted"
	default:
		return err.Error()
	}
}
