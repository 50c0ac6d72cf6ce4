// Package orchestrator runs the retrospective pipeline: parse the repository
// URL, fetch commits and issues concurrently, then generate the report when
// both streams have data.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	gh "github.com/robinyoon-dev/repo-spect/internal/github"
	"github.com/robinyoon-dev/repo-spect/internal/logger"
	"github.com/robinyoon-dev/repo-spect/internal/narrative"
	"github.com/robinyoon-dev/repo-spect/internal/repository"
)

// HistorySource lists repository history. *github.Client satisfies it.
type HistorySource interface {
	Commits(ctx context.Context, ref repository.Reference, q gh.CommitQuery) (*gh.CommitResult, error)
	Issues(ctx context.Context, ref repository.Reference, q gh.IssueQuery) (*gh.IssueResult, error)
}

// ReportGenerator turns history into a report. *narrative.Generator satisfies it.
type ReportGenerator interface {
	Retrospective(ctx context.Context, commits []gh.CommitRecord, issues []gh.IssueRecord) (*narrative.Report, error)
}

// State is the pipeline position reached by a run.
type State string

const (
	StateIdle             State = "idle"
	StateReady            State = "ready"
	StatePartialFailure   State = "partial_failure"
	StateGenerating       State = "generating"
	StateDone             State = "done"
	StateGenerationFailed State = "generation_failed"
)

// Options bounds the history a run collects.
type Options struct {
	// RecentDays limits both streams to the last N days; 0 fetches everything.
	RecentDays int

	// Cap is the per-stream record limit in exhaustive mode.
	Cap int

	// Now is overridable for tests
	Now func() time.Time
}

// DefaultOptions matches the one-week window the report template is written for.
func DefaultOptions() Options {
	return Options{RecentDays: 7, Cap: 100, Now: time.Now}
}

// Result carries everything a run produced. Fetched records stay available
// even when generation fails.
type Result struct {
	Ref     repository.Reference
	Since   time.Time
	State   State
	Commits []gh.CommitRecord
	Issues  []gh.IssueRecord

	// CommitsErr and IssuesErr are set independently; one failing stream
	// never hides the other's records.
	CommitsErr error
	IssuesErr  error

	// Report is nil unless both streams returned at least one record.
	Report        *narrative.Report
	GenerationErr error
}

// Generated reports whether generation ran and produced a report.
func (r *Result) Generated() bool { return r.Report != nil }

// Pipeline wires the history source to the report generator.
type Pipeline struct {
	source    HistorySource
	generator ReportGenerator
	opts      Options
}

// NewPipeline creates a pipeline; zero option fields take their defaults.
func NewPipeline(source HistorySource, generator ReportGenerator, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.Cap <= 0 {
		opts.Cap = def.Cap
	}
	if opts.RecentDays < 0 {
		opts.RecentDays = 0
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Pipeline{source: source, generator: generator, opts: opts}
}

// Run executes the pipeline for repoURL. The returned error is non-nil only
// when repoURL is rejected, in which case no network call is made. Fetch and
// generation failures are reported on the Result.
func (p *Pipeline) Run(ctx context.Context, repoURL string) (*Result, error) {
	ref, err := repository.Parse(repoURL)
	if err != nil {
		return nil, err
	}

	log := logger.C(ctx).With().Str("component", "pipeline").Str("repo", ref.String()).Logger()
	res := &Result{Ref: ref, State: StateIdle}
	if p.opts.RecentDays > 0 {
		res.Since = p.opts.Now().UTC().AddDate(0, 0, -p.opts.RecentDays)
	}

	start := time.Now()
	p.fetch(ctx, res)

	log.Info().
		Int("commits", len(res.Commits)).
		Int("issues", len(res.Issues)).
		AnErr("commits_err", res.CommitsErr).
		AnErr("issues_err", res.IssuesErr).
		Dur("elapsed", time.Since(start)).
		Msg("history fetched")

	if res.CommitsErr != nil || res.IssuesErr != nil {
		res.State = StatePartialFailure
	} else {
		res.State = StateReady
	}

	if len(res.Commits) == 0 || len(res.Issues) == 0 {
		log.Info().Str("state", string(res.State)).Msg("skipping generation, a stream is empty")
		return res, nil
	}

	res.State = StateGenerating
	report, err := p.generator.Retrospective(ctx, res.Commits, res.Issues)
	if err != nil {
		res.State = StateGenerationFailed
		res.GenerationErr = err
		log.Error().Err(err).Msg("generation failed")
		return res, nil
	}

	res.Report = report
	res.State = StateDone
	log.Info().Bool("fallback", report.Fallback).Dur("elapsed", time.Since(start)).Msg("pipeline done")
	return res, nil
}

// fetch runs both streams concurrently and waits for both. Each goroutine
// records its own error and returns nil so a failure never cancels the sibling.
func (p *Pipeline) fetch(ctx context.Context, res *Result) {
	var g errgroup.Group

	g.Go(func() error {
		out, err := p.source.Commits(ctx, res.Ref, gh.CommitQuery{
			Filter: gh.CommitFilter{Since: res.Since},
			All:    true,
			Cap:    p.opts.Cap,
		})
		if err != nil {
			res.CommitsErr = fmt.Errorf("commits: %w", err)
			return nil
		}
		res.Commits = out.Commits
		return nil
	})

	g.Go(func() error {
		out, err := p.source.Issues(ctx, res.Ref, gh.IssueQuery{
			Filter: gh.IssueFilter{State: "all", Since: res.Since},
			All:    true,
			Cap:    p.opts.Cap,
		})
		if err != nil {
			res.IssuesErr = fmt.Errorf("issues: %w", err)
			return nil
		}
		res.Issues = out.Issues
		return nil
	})

	_ = g.Wait()
}
