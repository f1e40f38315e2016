package provider

import (
	"context"
	"strconv"
)

// Planka talks to a self-hosted Planka board over its REST API. BoardID
// identifies the list new cards are created in; Planka has no native
// idempotency key so Planka relies on idempotencyCache.
type Planka struct {
	http   *httpClient
	listID string
	cache  *idempotencyCache
}

func NewPlanka(baseURL, token, listID string) *Planka {
	return &Planka{http: newHTTPClient(baseURL, token), listID: listID, cache: newIdempotencyCache()}
}

func (p *Planka) Name() string { return "planka" }

type plankaCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ListID      string `json:"listId"`
}

func toBoardTask(c plankaCard) BoardTask {
	return BoardTask{ExternalID: c.ID, Title: c.Name, Description: c.Description}
}

func (p *Planka) CreateTask(ctx context.Context, idempotencyKey string, task BoardTask) (BoardTask, error) {
	return p.cache.do(idempotencyKey, func() (BoardTask, error) {
		var created plankaCard
		body := map[string]string{"name": task.Title, "description": task.Description}
		if err := p.http.do(ctx, "POST", "/api/lists/"+p.listID+"/cards", body, &created); err != nil {
			return BoardTask{}, err
		}
		return toBoardTask(created), nil
	})
}

func (p *Planka) ReadTask(ctx context.Context, externalID string) (BoardTask, error) {
	var card plankaCard
	if err := p.http.do(ctx, "GET", "/api/cards/"+externalID, nil, &card); err != nil {
		return BoardTask{}, err
	}
	return toBoardTask(card), nil
}

func (p *Planka) UpdateTask(ctx context.Context, idempotencyKey string, externalID string, task BoardTask) (BoardTask, error) {
	return p.cache.do(idempotencyKey, func() (BoardTask, error) {
		var updated plankaCard
		body := map[string]string{"name": task.Title, "description": task.Description}
		if err := p.http.do(ctx, "PATCH", "/api/cards/"+externalID, body, &updated); err != nil {
			return BoardTask{}, err
		}
		return toBoardTask(updated), nil
	})
}

func (p *Planka) DeleteTask(ctx context.Context, idempotencyKey string, externalID string) error {
	_, err := p.cache.do(idempotencyKey, func() (BoardTask, error) {
		return BoardTask{ExternalID: externalID}, p.http.do(ctx, "DELETE", "/api/cards/"+externalID, nil, nil)
	})
	return err
}

func (p *Planka) SetStatus(ctx context.Context, idempotencyKey string, externalID string, status string) (BoardTask, error) {
	return p.cache.do(idempotencyKey, func() (BoardTask, error) {
		var updated plankaCard
		body := map[string]string{"listId": status}
		if err := p.http.do(ctx, "PATCH", "/api/cards/"+externalID, body, &updated); err != nil {
			return BoardTask{}, err
		}
		return toBoardTask(updated), nil
	})
}

func (p *Planka) AppendComment(ctx context.Context, idempotencyKey string, externalID string, body string) (Comment, error) {
	var created struct {
		ID   int    `json:"id"`
		Text string `json:"text"`
	}
	payload := map[string]string{"text": body}
	if err := p.http.do(ctx, "POST", "/api/cards/"+externalID+"/comments", payload, &created); err != nil {
		return Comment{}, err
	}
	return Comment{ExternalID: strconv.Itoa(created.ID), Author: "marcus", Body: created.Text}, nil
}

func (p *Planka) ListBoard(ctx context.Context) ([]BoardTask, error) {
	var cards []plankaCard
	if err := p.http.do(ctx, "GET", "/api/lists/"+p.listID+"/cards", nil, &cards); err != nil {
		return nil, err
	}
	out := make([]BoardTask, 0, len(cards))
	for _, c := range cards {
		out = append(out, toBoardTask(c))
	}
	return out, nil
}
