package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"visionbridge/internal/config"
	"visionbridge/internal/metrics"
	"visionbridge/internal/store"
)

// TaskPublisher publishes a message to a topic. Fire-and-forget: the queue
// offers at-least-once delivery and no reply channel.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Options tune the wait phase and retention policy. All of them come from
// configuration; see internal/config.
type Options struct {
	WaitTimeout       time.Duration
	PollInterval      time.Duration
	PollIntervalMax   time.Duration
	PollBackoffFactor float64
	DeleteOnRead      bool
	StagingPrefix     string
	ResultPrefix      string
}

// Service is the correlation bridge: it stages an input, dispatches a task,
// and ties the synchronous caller to the asynchronous worker through the
// result store under a bounded wait.
type Service struct {
	staging  store.ObjectStore
	results  store.ObjectStore
	pub      TaskPublisher
	notifier *Notifier
	opts     Options
	logger   *slog.Logger
}

func NewService(staging, results store.ObjectStore, pub TaskPublisher, notifier *Notifier, opts Options, logger *slog.Logger) *Service {
	if opts.PollBackoffFactor < 1 {
		opts.PollBackoffFactor = 1
	}
	if opts.PollIntervalMax < opts.PollInterval {
		opts.PollIntervalMax = opts.PollInterval
	}
	return &Service{
		staging:  staging,
		results:  results,
		pub:      pub,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Submit stages the payload, dispatches a task message and waits for the
// result under the configured deadline. The returned Outcome carries the
// correlation id whenever one was allocated, including on staging and
// dispatch failures, so the caller can always redeem later.
func (s *Service) Submit(ctx context.Context, payload []byte, filename string, attrs map[string]string) (*Outcome, error) {
	if filename == "" {
		metrics.SubmissionsTotal.WithLabelValues("validation_error").Inc()
		return nil, ErrEmptyFilename
	}

	id := uuid.NewString()
	out := &Outcome{CorrelationID: id, Status: StatusPending}

	stagingKey := store.StagingKey(s.opts.StagingPrefix, id, filepath.Base(filename))
	if err := s.staging.Put(ctx, stagingKey, payload); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("staging_error").Inc()
		return out, fmt.Errorf("%w: %s", ErrStaging, err)
	}

	msg := DispatchMessage{
		CorrelationID: id,
		InputRef:      ObjectRef{Bucket: s.opts.StagingPrefix, Key: stagingKey},
		ResultRef:     ObjectRef{Bucket: s.opts.ResultPrefix, Key: store.ResultKey(s.opts.ResultPrefix, id)},
		Metadata: Metadata{
			Filename:    filename,
			SubmittedAt: time.Now().UTC(),
			Attrs:       attrs,
		},
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return out, fmt.Errorf("%w: %s", ErrDispatch, err)
	}
	if err := s.pub.Publish(config.TopicClassifyTask, body); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("dispatch_error").Inc()
		// Staged object stays put; workers never saw it and re-staging on
		// resubmit uses a fresh id anyway.
		return out, fmt.Errorf("%w: %s", ErrDispatch, err)
	}

	s.logger.InfoContext(ctx, "task dispatched", "job_id", id, "filename", filename)

	start := time.Now()
	result := s.wait(ctx, id)
	metrics.WaitDuration.Observe(time.Since(start).Seconds())

	if result != nil {
		out.Status = StatusCompleted
		out.Result = result
		metrics.SubmissionsTotal.WithLabelValues("completed").Inc()
		return out, nil
	}

	// Timed out or the caller went away. Either way the job is still in
	// flight and the id is redeemable later.
	metrics.SubmissionsTotal.WithLabelValues("pending").Inc()
	s.logger.InfoContext(ctx, "wait elapsed without result", "job_id", id)
	return out, nil
}

// Redeem performs a single non-blocking check for a result. An absent
// object, whether not yet written, never issued, or already consumed under
// delete-on-read, resolves to a pending outcome, never an error.
func (s *Service) Redeem(ctx context.Context, correlationID string) (*Outcome, error) {
	result, err := s.fetchResult(ctx, correlationID)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RedemptionsTotal.WithLabelValues(string(StatusPending)).Inc()
		return &Outcome{CorrelationID: correlationID, Status: StatusPending}, nil
	}
	if err != nil {
		return nil, err
	}
	metrics.RedemptionsTotal.WithLabelValues(string(StatusCompleted)).Inc()
	return &Outcome{CorrelationID: correlationID, Status: StatusCompleted, Result: result}, nil
}

// wait polls the result store with multiplicative backoff until the result
// appears, the deadline elapses, or ctx is canceled. A worker announcement
// through the notifier short-circuits the current sleep. Returns nil when
// no result was obtained; the caller treats that as pending, not failure.
func (s *Service) wait(ctx context.Context, id string) *Result {
	deadline := time.Now().Add(s.opts.WaitTimeout)
	wake := s.notifier.Register(id)
	defer s.notifier.Unregister(id, wake)

	interval := s.opts.PollInterval
	for {
		result, err := s.fetchResult(ctx, id)
		if err == nil {
			return result
		}
		if !errors.Is(err, store.ErrNotFound) {
			// Transient store trouble must not fail a job that may still
			// complete; the next poll retries.
			s.logger.WarnContext(ctx, "result store check failed, will retry", "job_id", id, "error", err)
		}

		now := time.Now()
		if !now.Before(deadline) {
			return nil
		}
		sleep := interval
		if remaining := deadline.Sub(now); remaining < sleep {
			sleep = remaining
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}

		next := time.Duration(float64(interval) * s.opts.PollBackoffFactor)
		if next > s.opts.PollIntervalMax {
			next = s.opts.PollIntervalMax
		}
		interval = next
	}
}

// fetchResult reads and parses the result object for id. Under delete-on-read
// the read consumes the object atomically, so of any readers racing on one id
// exactly one completes and the rest see a normal pending.
func (s *Service) fetchResult(ctx context.Context, id string) (*Result, error) {
	metrics.ResultPollsTotal.Inc()

	key := store.ResultKey(s.opts.ResultPrefix, id)

	var (
		data []byte
		err  error
	)
	if s.opts.DeleteOnRead {
		data, err = s.results.GetDelete(ctx, key)
	} else {
		data, err = s.results.Get(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	return parseResult(data), nil
}

// parseResult never fails: content that does not match the expected schema
// is surfaced verbatim under Raw. A worker having produced something beats
// dropping it.
func parseResult(data []byte) *Result {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil || (r.Labels == nil && r.Error == "") {
		return &Result{Raw: string(data)}
	}
	return &r
}
