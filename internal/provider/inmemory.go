package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemory is the default provider (spec §6 provider: in-memory), useful
// standalone and in tests.
type InMemory struct {
	mu    sync.Mutex
	tasks map[string]BoardTask
	cache *idempotencyCache
}

func NewInMemory() *InMemory {
	return &InMemory{tasks: make(map[string]BoardTask), cache: newIdempotencyCache()}
}

func (p *InMemory) Name() string { return "in-memory" }

func (p *InMemory) CreateTask(ctx context.Context, idempotencyKey string, task BoardTask) (BoardTask, error) {
	return p.cache.do(idempotencyKey, func() (BoardTask, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if task.ExternalID == "" {
			task.ExternalID = uuid.NewString()
		}
		p.tasks[task.ExternalID] = task
		return task, nil
	})
}

func (p *InMemory) ReadTask(ctx context.Context, externalID string) (BoardTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[externalID]
	if !ok {
		return BoardTask{}, fmt.Errorf("provider: unknown task %q", externalID)
	}
	return t, nil
}

func (p *InMemory) UpdateTask(ctx context.Context, idempotencyKey string, externalID string, task BoardTask) (BoardTask, error) {
	return p.cache.do(idempotencyKey, func() (BoardTask, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.tasks[externalID]; !ok {
			return BoardTask{}, fmt.Errorf("provider: unknown task %q", externalID)
		}
		task.ExternalID = externalID
		p.tasks[externalID] = task
		return task, nil
	})
}

func (p *InMemory) DeleteTask(ctx context.Context, idempotencyKey string, externalID string) error {
	_, err := p.cache.do(idempotencyKey, func() (BoardTask, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.tasks, externalID)
		return BoardTask{ExternalID: externalID}, nil
	})
	return err
}

func (p *InMemory) SetStatus(ctx context.Context, idempotencyKey string, externalID string, status string) (BoardTask, error) {
	return p.cache.do(idempotencyKey, func() (BoardTask, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		t, ok := p.tasks[externalID]
		if !ok {
			return BoardTask{}, fmt.Errorf("provider: unknown task %q", externalID)
		}
		t.Status = status
		p.tasks[externalID] = t
		return t, nil
	})
}

func (p *InMemory) AppendComment(ctx context.Context, idempotencyKey string, externalID string, body string) (Comment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tasks[externalID]; !ok {
		return Comment{}, fmt.Errorf("provider: unknown task %q", externalID)
	}
	return Comment{ExternalID: uuid.NewString(), Author: "marcus", Body: body}, nil
}

func (p *InMemory) ListBoard(ctx context.Context) ([]BoardTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]BoardTask, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}
