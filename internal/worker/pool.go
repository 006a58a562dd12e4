// Package worker adapts the teacher's mailbox-actor substrate
// (internal/actor) into a bounded pool of long-lived worker actors that a
// round submits cluster-assembly jobs to one at a time (spec §5:
// "within a round, clusters are processed sequentially"). Each pool
// worker is a long-lived BaseActor; jobs are round-robined across them
// instead of spawning an actor per group, since groups are short-lived
// within a round and the teacher's actor lifecycle (Start/mailbox/Stop)
// is expensive to pay per group. Submit blocks until its job completes,
// so a caller that wants sequential rounds (the spec's default) gets it
// for free; the round-robin sizing exists so a future caller could
// pipeline independent Submits without waiting on worker count alone.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ride-dispatch-engine/internal/actor"
	"ride-dispatch-engine/internal/cluster"
	"ride-dispatch-engine/internal/logging"

	"github.com/google/uuid"
)

// AssembleFunc runs one group to completion and returns its outcome.
type AssembleFunc func(ctx context.Context, group cluster.Group) (Outcome, error)

// Outcome is the pool's result for a single group, generic over whatever
// the caller's AssembleFunc returns (kept as interface{} so this package
// has no dependency on internal/assembler's concrete Result type).
type Outcome interface{}

// job is the payload carried through an actor's mailbox: the group to
// process, the function to run, and the channel the caller blocks on.
type job struct {
	ctx    context.Context
	group  cluster.Group
	fn     AssembleFunc
	result chan jobResult
}

type jobResult struct {
	outcome Outcome
	err     error
}

// jobMessage adapts a job to actor.Message.
type jobMessage struct {
	*actor.BaseMessage
	job job
}

// Pool is a fixed-size set of actor workers that assemble cluster groups,
// round-robin-assigned and bounded by size rather than by one goroutine
// per group. A round drives Submit sequentially, so at most one worker is
// ever busy at a time in practice; the fixed size exists for the actor
// lifecycle's sake (spawn once, reuse across a round's many groups), not
// to parallelize assembly.
type Pool struct {
	system *actor.ActorSystem
	size   int
	next   uint64
	logger *logging.Logger
}

// New builds a Pool of size workers. Call Start before Submit.
func New(size int, logger *logging.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		system: actor.NewActorSystem("dispatch-assembly"),
		size:   size,
		logger: logger.WithComponent("worker_pool"),
	}
}

// Start spawns the fixed worker actors. Each worker's handler runs
// whatever AssembleFunc the submitted job carries and reports the result
// back on the job's own channel, so workers stay generic across callers.
func (p *Pool) Start(ctx context.Context) error {
	if err := p.system.Start(ctx); err != nil {
		return fmt.Errorf("start actor system: %w", err)
	}
	for i := 0; i < p.size; i++ {
		workerID := fmt.Sprintf("assembly-worker-%d", i)
		_, err := p.system.SpawnActor(workerID, workerID, 1, p.handle, actor.SupervisionRestart)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", workerID, err)
		}
	}
	return nil
}

// Stop tears down every worker actor.
func (p *Pool) Stop() error {
	return p.system.Stop()
}

func (p *Pool) handle(msg actor.Message) error {
	jm, ok := msg.(*jobMessage)
	if !ok {
		return fmt.Errorf("worker pool received non-job message of type %s", msg.GetType())
	}
	outcome, err := jm.job.fn(jm.job.ctx, jm.job.group)
	jm.job.result <- jobResult{outcome: outcome, err: err}
	return err
}

// Submit hands one group to the next worker (round-robin) and blocks
// until that worker finishes it or ctx is cancelled. A worker's mailbox
// holds a single in-flight job, so a Submit landing on a worker that is
// still busy retries the send on a short backoff instead of failing —
// callers running many Submits concurrently rely on this, not on the
// mailbox ever holding more than one job.
func (p *Pool) Submit(ctx context.Context, group cluster.Group, fn AssembleFunc) (Outcome, error) {
	idx := atomic.AddUint64(&p.next, 1) % uint64(p.size)
	workerID := fmt.Sprintf("assembly-worker-%d", idx)

	j := job{ctx: ctx, group: group, fn: fn, result: make(chan jobResult, 1)}
	msg := &jobMessage{
		BaseMessage: actor.NewBaseMessage("assemble_group", uuid.New().String(), "scheduler"),
		job:         j,
	}

	retry := time.NewTicker(2 * time.Millisecond)
	defer retry.Stop()
	for {
		if err := p.system.SendMessage(workerID, msg); err == nil {
			break
		}
		select {
		case <-retry.C:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case res := <-j.result:
		return res.outcome, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
