package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"surooh/app/core/knowledge"
	"surooh/app/core/queue"
)

// Orchestrator owns the task lifecycle: validation, persistence, queued
// dispatch to worker agents and completion reporting back into the
// knowledge layer. Task creation returns immediately; outcomes are
// observed by polling status.
type Orchestrator struct {
	store    *Store
	registry *Registry
	client   *Client
	jobs     *queue.Queue
	know     *knowledge.Store

	dispatchTimeout time.Duration
}

func New(store *Store, registry *Registry, client *Client, jobs *queue.Queue, know *knowledge.Store, dispatchTimeout time.Duration) *Orchestrator {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 30 * time.Second
	}
	return &Orchestrator{
		store:           store,
		registry:        registry,
		client:          client,
		jobs:            jobs,
		know:            know,
		dispatchTimeout: dispatchTimeout,
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// CreateTask validates the target agent, persists a pending record and
// enqueues its dispatch. The returned task id is valid for status polling
// straight away.
func (o *Orchestrator) CreateTask(ctx context.Context, agentName string, payload string, priority string) (string, error) {
	agent, ok := o.registry.Lookup(agentName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}
	if !ValidPriority(priority) {
		priority = PriorityNormal
	}

	now := time.Now()
	task := Task{
		ID:        uuid.NewString(),
		Agent:     agent.Name,
		Category:  agent.Category,
		Payload:   payload,
		Priority:  priority,
		Status:    StatusPending,
		TraceID:   uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Insert(task); err != nil {
		return "", err
	}

	_, err := o.jobs.Enqueue(ctx, queue.Job{
		ID:             task.ID,
		AttemptTimeout: o.dispatchTimeout,
		Run: func(jobCtx context.Context) error {
			return o.Dispatch(jobCtx, task.ID)
		},
	})
	if err != nil {
		if failErr := o.store.MarkFailed(task.ID, "enqueue failed: "+err.Error()); failErr != nil {
			log.Printf("[Orchestrator] task=%s mark failed after enqueue error: %v", task.ID, failErr)
		}
		return task.ID, nil
	}
	return task.ID, nil
}

// Dispatch drives one execution attempt: running, then completed or
// failed. Terminal records are never touched again; outcomes feed the
// knowledge store either way.
func (o *Orchestrator) Dispatch(ctx context.Context, taskID string) error {
	task, err := o.store.Get(taskID)
	if err != nil {
		return err
	}
	agent, ok := o.registry.Lookup(task.Agent)
	if !ok {
		_ = o.store.MarkFailed(taskID, "agent no longer registered: "+task.Agent)
		return fmt.Errorf("%w: %s", ErrUnknownAgent, task.Agent)
	}

	if err := o.store.MarkRunning(taskID); err != nil {
		return err
	}

	result, execErr := o.client.Execute(ctx, agent, task.Payload, task.Priority)
	if execErr != nil {
		if err := o.store.MarkFailed(taskID, execErr.Error()); err != nil {
			log.Printf("[Orchestrator] task=%s mark failed: %v", taskID, err)
		}
		o.reportOutcome(agent, false)
		return execErr
	}

	if err := o.store.MarkCompleted(taskID, result); err != nil {
		log.Printf("[Orchestrator] task=%s mark completed: %v", taskID, err)
		return err
	}
	o.reportOutcome(agent, true)
	return nil
}

// GetStatus returns a snapshot of the task record.
func (o *Orchestrator) GetStatus(taskID string) (Task, error) {
	return o.store.Get(taskID)
}

func (o *Orchestrator) RecentTasks(limit int) ([]Task, error) {
	return o.store.Recent(limit)
}

func (o *Orchestrator) Stats() (map[string]int, queue.Stats, error) {
	counts, err := o.store.CountByStatus()
	if err != nil {
		return nil, queue.Stats{}, err
	}
	return counts, o.jobs.Stats(), nil
}

func (o *Orchestrator) reportOutcome(agent WorkerAgent, success bool) {
	if o.know == nil {
		return
	}
	o.know.RecordTaskOutcome(agent.Name, agent.Category, success)
}
