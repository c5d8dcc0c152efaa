// Package driver implements the Mutation Driver, the per-file control loop
// that ties every other package together: dry-run, mutate, exec with
// deadline, classify, restore, persist, report. Grounded on spec §4.4 and
// the teacher's cmd/ao/rpi_phased.go phase-runner loop (acquire resource,
// run phase, classify result, advance) and cmd/ao/worktree.go's scoped
// create/cleanup symmetry — both read in full and deleted once their shape
// was adapted here and into internal/mutate (see DESIGN.md).
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"sort"
	"time"

	"github.com/trailofbits/necessist-go/internal/framework"
	"github.com/trailofbits/necessist-go/internal/mutate"
	"github.com/trailofbits/necessist-go/internal/outcome"
	"github.com/trailofbits/necessist-go/internal/report"
	"github.com/trailofbits/necessist-go/internal/session"
	"github.com/trailofbits/necessist-go/internal/span"
	"github.com/trailofbits/necessist-go/internal/store"
	"github.com/trailofbits/necessist-go/internal/worker"
)

// Driver runs the per-file mutation lifecycle across a discovered set of
// spans, using fw to parse/dry-run/exec, st to persist records, sess to
// gate the resume/skip path and the trust placed in a file's dry-run
// baseline, and rep to stream results.
type Driver struct {
	fw       framework.Interface
	st       store.Store
	sess     *session.Session
	rep      *report.Reporter
	pool     *worker.Pool[struct{}]
	timeout  time.Duration
	remote   string
	commit   string
	blankOpt mutate.Option
}

// Option configures a Driver.
type Option func(*Driver)

// WithVCSInfo enables blob-URL derivation (spec §6) on persisted records.
func WithVCSInfo(remoteBase, commit string) Option {
	return func(d *Driver) { d.remote, d.commit = remoteBase, commit }
}

// WithLinePreservingBlank makes the driver blank removed spans with
// whitespace instead of deleting them outright (spec §9's implementation
// freedom), propagated to every internal/mutate.Acquire call.
func WithLinePreservingBlank() Option {
	return func(d *Driver) { d.blankOpt = mutate.WithLinePreservingBlank() }
}

// New constructs a Driver. sess must already have loaded st's prior records
// (session.New does this) so the resume/skip path and dry-run baseline
// trust both reflect the same snapshot the driver persists into. concurrency
// <= 0 defers to worker.NewPool's runtime.NumCPU() default.
func New(fw framework.Interface, st store.Store, sess *session.Session, rep *report.Reporter, timeout time.Duration, concurrency int, opts ...Option) *Driver {
	d := &Driver{
		fw:      fw,
		st:      st,
		sess:    sess,
		rep:     rep,
		pool:    worker.NewPool[struct{}](concurrency),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run groups spans by file, dry-runs each file once, and processes its
// spans in ascending order, one file-scoped job per worker. Spans within a
// file are always processed in submission order, from a single goroutine,
// so the per-file lifecycle's sequencing (dry-run, then spans in order) is
// exact regardless of the pool's global concurrency.
func (d *Driver) Run(ctx context.Context, spans []span.Span) error {
	groups := groupByFile(spans)

	jobs := make([]worker.Job[struct{}], 0, len(groups))
	for _, g := range groups {
		g := g
		jobs = append(jobs, worker.Job[struct{}]{
			FileKey: g.file.Key(),
			Run: func(ctx context.Context) (struct{}, error) {
				d.processFile(ctx, g.file, g.spans)
				return struct{}{}, nil
			},
		})
	}

	results := d.pool.Run(ctx, jobs)
	for _, r := range results {
		if r.Err != nil {
			log.Printf("necessist: file job failed: %v", r.Err)
		}
	}
	return nil
}

type fileGroup struct {
	file  *span.SourceFile
	spans []span.Span
}

// groupByFile buckets spans by their SourceFile, sorts each bucket by
// ascending start position (spec §4.4's tie-break rule), and drops later
// spans that overlap an earlier one, per spec's "later-registered is
// dropped with a warning" rule.
func groupByFile(spans []span.Span) []fileGroup {
	index := make(map[string]int)
	var groups []fileGroup

	for _, s := range spans {
		key := s.File.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, fileGroup{file: s.File})
		}
		groups[i].spans = append(groups[i].spans, s)
	}

	for gi := range groups {
		g := &groups[gi]
		sort.Slice(g.spans, func(i, j int) bool { return g.spans[i].Less(g.spans[j]) })

		var kept []span.Span
		for _, s := range g.spans {
			overlapsKept := false
			for _, k := range kept {
				if s.Overlaps(k) {
					overlapsKept = true
					break
				}
			}
			if overlapsKept {
				log.Printf("necessist: dropping span %s: overlaps an earlier span in the same file", s)
				continue
			}
			kept = append(kept, s)
		}
		g.spans = kept
	}

	return groups
}

// processFile runs one file's dry-run-then-spans lifecycle. Before trusting
// anything recorded for this file in a prior run, it checks the file against
// the session's dry-run baseline (spec §9's dirty-repo Open Question
// resolution): if the file's content has changed since the session first
// observed it, prior records for it are not skipped — every span is
// re-executed and the stale records are overwritten with fresh ones.
func (d *Driver) processFile(ctx context.Context, file *span.SourceFile, spans []span.Span) {
	stale, err := d.sess.Stale(file.Path())
	if err != nil {
		log.Printf("necessist: %s: staleness check failed, trusting prior results: %v", file, err)
	} else if stale {
		log.Printf("necessist: %s changed since it was first observed this run; ignoring its prior recorded results", file)
	}

	if err := d.fw.DryRun(ctx, file.Path()); err != nil {
		log.Printf("necessist: dry-run failed for %s: %v", file, err)
		for _, s := range spans {
			d.recordAndEmit(s, outcome.Nonbuildable)
		}
		return
	}

	for _, s := range spans {
		if !stale {
			if rec, ok := d.sess.Seen(s.Key()); ok {
				d.rep.Emit(s, rec.Outcome, rec.URL)
				continue
			}
		}

		o, err := d.mutateAndExec(ctx, s)
		if err != nil {
			log.Printf("necessist: %s: %v", s, err)
		}
		d.recordAndEmit(s, o)
	}
}

// mutateAndExec applies the scoped mutation, execs the framework's test
// command under the configured deadline, and classifies the result.
// Restoration of the file happens unconditionally via the guard's deferred
// Release, on every return path including panics.
func (d *Driver) mutateAndExec(ctx context.Context, s span.Span) (outcome.Outcome, error) {
	var opts []mutate.Option
	if d.blankOpt != nil {
		opts = append(opts, d.blankOpt)
	}

	guard, err := mutate.Acquire(s.File.Path(), s, opts...)
	if err != nil {
		return outcome.Nonbuildable, fmt.Errorf("apply mutation: %w", err)
	}
	defer func() {
		if relErr := guard.Release(); relErr != nil {
			log.Printf("necessist: %s: restore failed: %v", s, relErr)
		}
		// The file was legitimately re-mutated and restored; drop its
		// baseline so the session re-establishes a fresh one next time it
		// checks this file, rather than risk this driver's own write being
		// mistaken for external drift.
		d.sess.Forget(s.File.Path())
	}()

	execn, err := d.fw.Exec(ctx, s)
	if err != nil {
		return outcome.Nonbuildable, fmt.Errorf("exec: %w", err)
	}
	if execn == nil {
		// Inconclusive per framework.Interface.Exec's contract; nothing to
		// classify or persist for this span.
		return outcome.Outcome(-1), nil
	}

	return d.runWithDeadline(ctx, execn)
}

// runWithDeadline waits for execn's process to complete, killing it if the
// driver's timeout elapses first, and classifies the outcome per spec
// §4.4.d.
func (d *Driver) runWithDeadline(ctx context.Context, execn *framework.Execution) (outcome.Outcome, error) {
	cmd := execn.Cmd

	var stdout, stderr bytes.Buffer
	if cmd.Stdout == nil {
		cmd.Stdout = &stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		return outcome.Nonbuildable, fmt.Errorf("start test process: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		killProcess(cmd)
		<-done
		return outcome.TimedOut, nil

	case <-ctx.Done():
		// Cooperative cancellation (spec §5): stop classifying, let the
		// caller's inconclusive-skip sentinel suppress persistence so a
		// canceled run never records a misleading outcome for this span.
		killProcess(cmd)
		<-done
		return outcome.Outcome(-1), ctx.Err()

	case err := <-done:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return outcome.Nonbuildable, fmt.Errorf("run test process: %w", err)
		}

		if execn.Postprocess != nil {
			ok, perr := execn.Postprocess(stdout.Bytes(), stderr.Bytes())
			if perr != nil {
				return outcome.Nonbuildable, fmt.Errorf("interpret test output: %w", perr)
			}
			if ok {
				return outcome.Passed, nil
			}
			return outcome.Failed, nil
		}

		if err == nil {
			return outcome.Passed, nil
		}
		return outcome.Failed, nil
	}
}

// killProcess best-effort terminates the process. Process-group/descendant
// termination is the concrete framework adapter's responsibility (it owns
// process-group setup via Cmd.SysProcAttr); adapters are out of scope here,
// so the driver only guarantees the direct child is killed.
func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

// recordAndEmit persists a record (skipping the -1 inconclusive-skip
// sentinel) and streams it to the reporter, deriving a VCS URL when
// configured.
func (d *Driver) recordAndEmit(s span.Span, o outcome.Outcome) {
	if int(o) < 0 {
		return
	}

	url := span.VCSURL(d.remote, d.commit, s)
	rec := store.Record{Span: s, Outcome: o, URL: url}
	if err := d.st.Append(rec); err != nil {
		log.Printf("necessist: %s: persist failed: %v", s, err)
	}
	d.sess.Record(rec)
	d.rep.Emit(s, o, url)
}
