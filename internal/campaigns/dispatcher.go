package campaigns

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hackhub-cms/backend/internal/mailer"
)

// DefaultBatchSize bounds concurrent outbound sends.
const DefaultBatchSize = 5

// Outcome summarises a finished campaign.
type Outcome string

const (
	OutcomeNothingToDo Outcome = "nothing_to_do"
	OutcomeAllSent     Outcome = "all_sent"
	OutcomePartial     Outcome = "partial"
)

// Job is one rendered message for one recipient.
type Job struct {
	Recipient Recipient
	Message   mailer.Message
}

// Failure records a send that did not go through.
type Failure struct {
	Recipient Recipient
	Err       error
}

// BatchJob is a contiguous slice of jobs sent concurrently as a unit.
type BatchJob struct {
	Index int
	Jobs  []Job
}

// BatchResult is the settled outcome of one BatchJob.
type BatchResult struct {
	Index     int
	Succeeded int
	Failed    []Failure
}

// SendFunc delivers one message.
type SendFunc func(ctx context.Context, msg mailer.Message) (mailer.Result, error)

// Partition splits jobs into ceil(len/size) batches, preserving order.
func Partition(jobs []Job, size int) []BatchJob {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([]BatchJob, 0, (len(jobs)+size-1)/size)
	for start := 0; start < len(jobs); start += size {
		end := min(start+size, len(jobs))
		batches = append(batches, BatchJob{Index: len(batches), Jobs: jobs[start:end]})
	}
	return batches
}

// Settle sends every job of the batch concurrently and waits for all of them.
// A failed send never cancels its siblings.
func (b BatchJob) Settle(ctx context.Context, send SendFunc) BatchResult {
	errs := make([]error, len(b.Jobs))
	var g errgroup.Group
	g.SetLimit(max(len(b.Jobs), 1))
	for i, job := range b.Jobs {
		i, job := i, job
		g.Go(func() error {
			_, errs[i] = send(ctx, job.Message)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Index: b.Index}
	for i, err := range errs {
		if err != nil {
			res.Failed = append(res.Failed, Failure{Recipient: b.Jobs[i].Recipient, Err: err})
			continue
		}
		res.Succeeded++
	}
	return res
}

// Progress is reported after each batch; counts are cumulative.
type Progress struct {
	Batch   int `json:"batch"`
	Batches int `json:"batches"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Report is the aggregate result of a campaign.
type Report struct {
	Outcome    Outcome   `json:"outcome"`
	Total      int       `json:"total"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Batches    int       `json:"batches"`
	BatchSizes []int     `json:"batch_sizes"`
	Failures   []Failure `json:"-"`
}

// Dispatcher sends jobs in sequential batches.
type Dispatcher struct {
	Sender      mailer.Sender
	BatchSize   int
	SendTimeout time.Duration // zero waits forever
	OnBatch     func(Progress)
	Logger      *zap.Logger
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// send bounds one provider call by SendTimeout even if the sender ignores ctx.
func (d *Dispatcher) send(ctx context.Context, msg mailer.Message) (mailer.Result, error) {
	if d.SendTimeout <= 0 {
		return d.Sender.Send(ctx, msg)
	}
	ctx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()

	type result struct {
		res mailer.Result
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := d.Sender.Send(ctx, msg)
		done <- result{res, err}
	}()
	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return mailer.Result{}, ctx.Err()
	}
}

// Run dispatches jobs. Batches run strictly in order; individual failures are
// counted and logged but never retried and never stop the run.
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) Report {
	rep := Report{Total: len(jobs)}
	if len(jobs) == 0 {
		rep.Outcome = OutcomeNothingToDo
		return rep
	}
	log := d.logger()
	batches := Partition(jobs, d.BatchSize)
	rep.Batches = len(batches)

	for _, b := range batches {
		res := b.Settle(ctx, d.send)
		rep.BatchSizes = append(rep.BatchSizes, len(b.Jobs))
		rep.Sent += res.Succeeded
		rep.Failed += len(res.Failed)
		rep.Failures = append(rep.Failures, res.Failed...)
		for _, f := range res.Failed {
			log.Warn("campaign send failed",
				zap.Int("batch", b.Index),
				zap.String("to", f.Recipient.Email),
				zap.String("registration_id", f.Recipient.RegistrationID.String()),
				zap.Error(f.Err))
		}
		if d.OnBatch != nil {
			d.OnBatch(Progress{Batch: b.Index + 1, Batches: rep.Batches, Sent: rep.Sent, Failed: rep.Failed, Total: rep.Total})
		}
	}

	rep.Outcome = OutcomeAllSent
	if rep.Failed > 0 {
		rep.Outcome = OutcomePartial
	}
	log.Info("campaign dispatched",
		zap.Int("total", rep.Total),
		zap.Int("sent", rep.Sent),
		zap.Int("failed", rep.Failed),
		zap.Int("batches", rep.Batches))
	return rep
}
