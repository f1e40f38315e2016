// Package provider implements spec §4.8: a narrow interface over whichever
// kanban backend the core is configured against, plus the variant-selection
// pattern internal/db/registry.go uses for sql drivers, reapplied one layer
// up.
package provider

import "context"

// BoardTask is the provider's view of a task, distinct from models.Task so
// the core never leaks its internal identifiers or dependency graph across
// the provider boundary.
type BoardTask struct {
	ExternalID  string
	Title       string
	Description string
	Status      string
	Assignee    string
	Labels      []string
}

// Comment is a single note attached to a board task.
type Comment struct {
	ExternalID string
	Author     string
	Body       string
}

// Adapter is the narrow interface spec §4.8 calls for: create/read/update/
// delete task, append comment, set status, list board. Every mutating call
// takes an idempotencyKey supplied by the caller so retries are safe against
// backends without native compare-and-set semantics. The exception is
// AppendComment: no variant in this package consults its key, so a retried
// call posts a second comment.
type Adapter interface {
	Name() string

	CreateTask(ctx context.Context, idempotencyKey string, task BoardTask) (BoardTask, error)
	ReadTask(ctx context.Context, externalID string) (BoardTask, error)
	UpdateTask(ctx context.Context, idempotencyKey string, externalID string, task BoardTask) (BoardTask, error)
	DeleteTask(ctx context.Context, idempotencyKey string, externalID string) error

	SetStatus(ctx context.Context, idempotencyKey string, externalID string, status string) (BoardTask, error)
	AppendComment(ctx context.Context, idempotencyKey string, externalID string, body string) (Comment, error)

	ListBoard(ctx context.Context) ([]BoardTask, error)
}
