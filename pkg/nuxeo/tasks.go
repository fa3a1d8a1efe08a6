package nuxeo

import (
	"context"
	"fmt"
	"net/url"
)

// Task transfer actions.
const (
	TransferDelegate = "delegate"
	TransferReassign = "reassign"
)

// TaskFilter narrows a task listing; zero fields are left out of the
// query.
type TaskFilter struct {
	UserID             string
	WorkflowInstanceID string
	WorkflowModelName  string
}

// TasksAPI manages workflow tasks.
type TasksAPI struct {
	endpoint
}

func newTasksAPI(c *Client) *TasksAPI {
	return &TasksAPI{endpoint: newEndpoint(c, "task")}
}

// List fetches the tasks matching the filter.
func (a *TasksAPI) List(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := url.Values{}
	if filter.UserID != "" {
		query.Set("userId", filter.UserID)
	}
	if filter.WorkflowInstanceID != "" {
		query.Set("workflowInstanceId", filter.WorkflowInstanceID)
	}
	if filter.WorkflowModelName != "" {
		query.Set("workflowModelName", filter.WorkflowModelName)
	}

	var tasks []Task
	if err := a.get(ctx, "", &tasks, WithQuery(query)); err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].api = a
	}
	return tasks, nil
}

// Get fetches a task by id.
func (a *TasksAPI) Get(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := a.get(ctx, id, &task); err != nil {
		return nil, err
	}
	task.api = a
	return &task, nil
}

// CompleteOptions carries the variables and comment attached to a task
// completion.
type CompleteOptions struct {
	Variables map[string]interface{}
	Comment   string
}

// Complete finishes a task with an action (approve, reject, ...) and
// returns the updated task.
func (a *TasksAPI) Complete(ctx context.Context, task *Task, action string, opts CompleteOptions) (*Task, error) {
	if task.ID == "" {
		return nil, &BadQueryError{Reason: "task has no id"}
	}

	payload := *task
	if len(opts.Variables) > 0 {
		if payload.Variables == nil {
			payload.Variables = map[string]interface{}{}
		}
		for k, v := range opts.Variables {
			payload.Variables[k] = v
		}
	}
	if opts.Comment != "" {
		payload.Comments = append(payload.Comments, TaskComment{Text: opts.Comment})
	}

	var updated Task
	if err := a.put(ctx, task.ID+"/"+action, &payload, &updated); err != nil {
		return nil, err
	}
	updated.api = a
	return &updated, nil
}

// Transfer delegates or reassigns a task to other actors (comma-separated
// actor ids).
func (a *TasksAPI) Transfer(ctx context.Context, task *Task, action, actors, comment string) error {
	if action != TransferDelegate && action != TransferReassign {
		return &BadQueryError{Reason: fmt.Sprintf("task transfer action must be %q or %q", TransferDelegate, TransferReassign)}
	}
	if task.ID == "" {
		return &BadQueryError{Reason: "task has no id"}
	}

	query := url.Values{}
	query.Set("actors", actors)
	if comment != "" {
		query.Set("comment", comment)
	}

	_, err := a.client.Request(ctx, "PUT", a.url(task.ID+"/"+action), WithQuery(query))
	return err
}
