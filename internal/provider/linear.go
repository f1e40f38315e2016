package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// Linear speaks Linear's GraphQL API against a single team. BoardID holds
// the Linear team id new issues are created under.
type Linear struct {
	http   *httpClient
	teamID string
	cache  *idempotencyCache
}

func NewLinear(token, teamID string) *Linear {
	return &Linear{http: newHTTPClient("https://api.linear.app", token), teamID: teamID, cache: newIdempotencyCache()}
}

func (l *Linear) Name() string { return "linear" }

type linearIssue struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       struct {
		Name string `json:"name"`
	} `json:"state"`
	Assignee *struct {
		Email string `json:"email"`
	} `json:"assignee"`
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func toBoardTaskFromLinear(i linearIssue) BoardTask {
	assignee := ""
	if i.Assignee != nil {
		assignee = i.Assignee.Email
	}
	return BoardTask{
		ExternalID:  i.ID,
		Title:       i.Title,
		Description: i.Description,
		Status:      i.State.Name,
		Assignee:    assignee,
	}
}

func (l *Linear) graphql(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	req := graphqlRequest{Query: query, Variables: variables}
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := l.http.do(ctx, "POST", "/graphql", req, &envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("provider: linear graphql error: %s", envelope.Errors[0].Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

func (l *Linear) CreateTask(ctx context.Context, idempotencyKey string, task BoardTask) (BoardTask, error) {
	return l.cache.do(idempotencyKey, func() (BoardTask, error) {
		var result struct {
			IssueCreate struct {
				Issue linearIssue `json:"issue"`
			} `json:"issueCreate"`
		}
		query := `mutation($teamId: String!, $title: String!, $description: String) {
			issueCreate(input: {teamId: $teamId, title: $title, description: $description}) {
				issue { id title description state { name } }
			}
		}`
		variables := map[string]interface{}{"teamId": l.teamID, "title": task.Title, "description": task.Description}
		if err := l.graphql(ctx, query, variables, &result); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromLinear(result.IssueCreate.Issue), nil
	})
}

func (l *Linear) ReadTask(ctx context.Context, externalID string) (BoardTask, error) {
	var result struct {
		Issue linearIssue `json:"issue"`
	}
	query := `query($id: String!) { issue(id: $id) { id title description state { name } assignee { email } } }`
	if err := l.graphql(ctx, query, map[string]interface{}{"id": externalID}, &result); err != nil {
		return BoardTask{}, err
	}
	return toBoardTaskFromLinear(result.Issue), nil
}

func (l *Linear) UpdateTask(ctx context.Context, idempotencyKey string, externalID string, task BoardTask) (BoardTask, error) {
	return l.cache.do(idempotencyKey, func() (BoardTask, error) {
		var result struct {
			IssueUpdate struct {
				Issue linearIssue `json:"issue"`
			} `json:"issueUpdate"`
		}
		query := `mutation($id: String!, $title: String!, $description: String) {
			issueUpdate(id: $id, input: {title: $title, description: $description}) {
				issue { id title description state { name } }
			}
		}`
		variables := map[string]interface{}{"id": externalID, "title": task.Title, "description": task.Description}
		if err := l.graphql(ctx, query, variables, &result); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromLinear(result.IssueUpdate.Issue), nil
	})
}

func (l *Linear) DeleteTask(ctx context.Context, idempotencyKey string, externalID string) error {
	_, err := l.cache.do(idempotencyKey, func() (BoardTask, error) {
		query := `mutation($id: String!) { issueDelete(id: $id) { success } }`
		if err := l.graphql(ctx, query, map[string]interface{}{"id": externalID}, nil); err != nil {
			return BoardTask{}, err
		}
		return BoardTask{ExternalID: externalID}, nil
	})
	return err
}

func (l *Linear) SetStatus(ctx context.Context, idempotencyKey string, externalID string, status string) (BoardTask, error) {
	return l.cache.do(idempotencyKey, func() (BoardTask, error) {
		var result struct {
			IssueUpdate struct {
				Issue linearIssue `json:"issue"`
			} `json:"issueUpdate"`
		}
		query := `mutation($id: String!, $stateId: String!) {
			issueUpdate(id: $id, input: {stateId: $stateId}) { issue { id title description state { name } } }
		}`
		if err := l.graphql(ctx, query, map[string]interface{}{"id": externalID, "stateId": status}, &result); err != nil {
			return BoardTask{}, err
		}
		return toBoardTaskFromLinear(result.IssueUpdate.Issue), nil
	})
}

func (l *Linear) AppendComment(ctx context.Context, idempotencyKey string, externalID string, body string) (Comment, error) {
	var result struct {
		CommentCreate struct {
			Comment struct {
				ID   string `json:"id"`
				Body string `json:"body"`
			} `json:"comment"`
		} `json:"commentCreate"`
	}
	query := `mutation($issueId: String!, $body: String!) {
		commentCreate(input: {issueId: $issueId, body: $body}) { comment { id body } }
	}`
	if err := l.graphql(ctx, query, map[string]interface{}{"issueId": externalID, "body": body}, &result); err != nil {
		return Comment{}, err
	}
	return Comment{ExternalID: result.CommentCreate.Comment.ID, Author: "marcus", Body: result.CommentCreate.Comment.Body}, nil
}

func (l *Linear) ListBoard(ctx context.Context) ([]BoardTask, error) {
	var result struct {
		Team struct {
			Issues struct {
				Nodes []linearIssue `json:"nodes"`
			} `json:"issues"`
		} `json:"team"`
	}
	query := `query($teamId: String!) { team(id: $teamId) { issues { nodes { id title description state { name } } } } }`
	if err := l.graphql(ctx, query, map[string]interface{}{"teamId": l.teamID}, &result); err != nil {
		return nil, err
	}
	out := make([]BoardTask, 0, len(result.Team.Issues.Nodes))
	for _, i := range result.Team.Issues.Nodes {
		out = append(out, toBoardTaskFromLinear(i))
	}
	return out, nil
}
