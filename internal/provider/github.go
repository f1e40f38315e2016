package provider

import (
	"context"
	"fmt"
	"strconv"
)

// GitHub models the board as a single repository's issues. BoardID is
// "owner/repo"; status is reflected as an open/closed state plus a
// "status:<value>" label since GitHub issues have no native column field.
type GitHub struct {
	http      *httpClient
	ownerRepo string
	cache     *idempotencyCache
}

func NewGitHub(token, ownerRepo string) *GitHub {
	return &GitHub{http: newHTTPClient("https://api.github.com", token), ownerRepo: ownerRepo, cache: newIdempotencyCache()}
}

func (g *GitHub) Name() string { return "github" }

type ghIssue struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	State    string    `json:"state"`
	Labels   []ghLabel `json:"labels"`
	Assignee *ghUser   `json:"assignee"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghUser struct {
	Login string `json:"login"`
}

func (g *GitHub) issuePath(suffix string) string {
	return "/repos/" + g.ownerRepo + "/issues" + suffix
}

func toBoardTaskFromIssue(i ghIssue) BoardTask {
	labels := make([]string, 0, len(i.Labels))
	status := i.State
	for _, l := range i.Labels {
		if len(l.Name) > 7 && l.Name[:7] == "status:" {
			status = l.Name[7:]
			continue
		}
		labels = append(labels, l.Name)
	}
	assignee := ""
	if i.Assignee != nil {
		assignee = i.Assignee.Login
	}
	return BoardTask{
		ExternalID:  strconv.Itoa(i.Number),
		Title:       i.Title,
		Description: i.Body,
		Status:      status,
		Assignee:    assignee,
		Labels:      labels,
	}
}

func (g *GitHub) CreateTask(ctx context.Context, idempotencyKey string, task BoardTask) (BoardTask, error) {
	return g.cache.do(idempotencyKey, func() (BoardTask, error) {
		var created ghIssue
		body := map[string]interface{}{"title": task.Title, "body": task.Description, "labels": task.Labels}
		if err := g.http.do(ctx, "POST", g.issuePath(""), body, &created); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromIssue(created), nil
	})
}

func (g *GitHub) ReadTask(ctx context.Context, externalID string) (BoardTask, error) {
	var issue ghIssue
	if err := g.http.do(ctx, "GET", g.issuePath("/"+externalID), nil, &issue); err != nil {
		return BoardTask{}, err
	}
	return toBoardTaskFromIssue(issue), nil
}

func (g *GitHub) UpdateTask(ctx context.Context, idempotencyKey string, externalID string, task BoardTask) (BoardTask, error) {
	return g.cache.do(idempotencyKey, func() (BoardTask, error) {
		var updated ghIssue
		body := map[string]interface{}{"title": task.Title, "body": task.Description, "labels": task.Labels}
		if err := g.http.do(ctx, "PATCH", g.issuePath("/"+externalID), body, &updated); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromIssue(updated), nil
	})
}

func (g *GitHub) DeleteTask(ctx context.Context, idempotencyKey string, externalID string) error {
	// GitHub issues cannot be deleted via the REST API; closing is the
	// closest equivalent and is what Non-goals-scoped callers expect.
	_, err := g.cache.do(idempotencyKey, func() (BoardTask, error) {
		var updated ghIssue
		body := map[string]string{"state": "closed"}
		if err := g.http.do(ctx, "PATCH", g.issuePath("/"+externalID), body, &updated); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromIssue(updated), nil
	})
	return err
}

func (g *GitHub) SetStatus(ctx context.Context, idempotencyKey string, externalID string, status string) (BoardTask, error) {
	return g.cache.do(idempotencyKey, func() (BoardTask, error) {
		var updated ghIssue
		body := map[string]interface{}{"labels": []string{"status:" + status}}
		if err := g.http.do(ctx, "PATCH", g.issuePath("/"+externalID), body, &updated); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromIssue(updated), nil
	})
}

func (g *GitHub) AppendComment(ctx context.Context, idempotencyKey string, externalID string, body string) (Comment, error) {
	var created struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
	}
	payload := map[string]string{"body": body}
	if err := g.http.do(ctx, "POST", g.issuePath("/"+externalID+"/comments"), payload, &created); err != nil {
		return Comment{}, err
	}
	return Comment{ExternalID: fmt.Sprintf("%d", created.ID), Author: "marcus", Body: created.Body}, nil
}

func (g *GitHub) ListBoard(ctx context.Context) ([]BoardTask, error) {
	var issues []ghIssue
	if err := g.http.do(ctx, "GET", g.issuePath("?state=all"), nil, &issues); err != nil {
		return nil, err
	}
	out := make([]BoardTask, 0, len(issues))
	for _, i := range issues {
		out = append(out, toBoardTaskFromIssue(i))
	}
	return out, nil
}
