package nuxeo

import (
	"context"
	"net/url"
)

// StartOptions configures a new workflow instance. When Document is set
// the workflow starts on that document instead of the repository root.
type StartOptions struct {
	AttachedDocumentIDs []string
	Variables           map[string]interface{}
	Document            *Document
}

// WorkflowsAPI starts and tracks workflow instances.
type WorkflowsAPI struct {
	endpoint
}

func newWorkflowsAPI(c *Client) *WorkflowsAPI {
	return &WorkflowsAPI{endpoint: newEndpoint(c, "workflow")}
}

// Start launches an instance of the named workflow model.
func (a *WorkflowsAPI) Start(ctx context.Context, model string, opts StartOptions) (*Workflow, error) {
	if model == "" {
		return nil, &BadQueryError{Reason: "workflow model name is required"}
	}

	payload := &Workflow{
		EntityType:        "workflow",
		WorkflowModelName: model,
		Variables:         opts.Variables,
	}
	for _, id := range opts.AttachedDocumentIDs {
		payload.AttachedDocumentIDs = append(payload.AttachedDocumentIDs, Ref{ID: id})
	}

	path := ""
	target := a.endpoint
	if opts.Document != nil {
		if opts.Document.UID == "" {
			return nil, &BadQueryError{Reason: "document has no uid"}
		}
		target = newEndpoint(a.client, "")
		path = "id/" + opts.Document.UID + "/@workflow"
	}

	var started Workflow
	if err := target.post(ctx, path, payload, &started); err != nil {
		return nil, err
	}
	started.api = a
	return &started, nil
}

// Get fetches a workflow instance by id.
func (a *WorkflowsAPI) Get(ctx context.Context, id string) (*Workflow, error) {
	var wf Workflow
	if err := a.get(ctx, id, &wf); err != nil {
		return nil, err
	}
	wf.api = a
	return &wf, nil
}

// Started lists the running instances, optionally filtered by workflow
// model name.
func (a *WorkflowsAPI) Started(ctx context.Context, model string) ([]Workflow, error) {
	var opts []RequestOption
	if model != "" {
		query := url.Values{}
		query.Set("workflowModelName", model)
		opts = append(opts, WithQuery(query))
	}

	var workflows []Workflow
	if err := a.get(ctx, "", &workflows, opts...); err != nil {
		return nil, err
	}
	for i := range workflows {
		workflows[i].api = a
	}
	return workflows, nil
}

// Delete cancels a workflow instance.
func (a *WorkflowsAPI) Delete(ctx context.Context, id string) error {
	return a.delete(ctx, id)
}

// Graph fetches the route graph of a workflow instance.
func (a *WorkflowsAPI) Graph(ctx context.Context, id string) (map[string]interface{}, error) {
	graph := map[string]interface{}{}
	if err := a.get(ctx, id+"/graph", &graph); err != nil {
		return nil, err
	}
	return graph, nil
}
