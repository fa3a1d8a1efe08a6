package nuxeo

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskJSON(id, state string) map[string]interface{} {
	return map[string]interface{}{
		"entity-type":        "task",
		"id":                 id,
		"name":               "wf.serialDocumentReview.DocumentValidation",
		"state":              state,
		"workflowInstanceId": "wf-1",
		"actors":             []map[string]string{{"id": "georges"}},
		"variables":          map[string]interface{}{"comment": ""},
	}
}

func TestTasksAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/task", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "georges", r.URL.Query().Get("userId"))
		assert.Equal(t, "wf-1", r.URL.Query().Get("workflowInstanceId"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entity-type": "tasks",
			"entries":     []interface{}{taskJSON("task-1", "opened")},
		})
	})
	mux.HandleFunc("/api/v1/task/task-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(taskJSON("task-1", "opened"))
	})
	mux.HandleFunc("/api/v1/task/task-1/approve", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)

		var task Task
		require.NoError(t, json.NewDecoder(r.Body).Decode(&task))
		assert.Equal(t, "LGTM", task.Variables["review"])
		require.Len(t, task.Comments, 1)
		assert.Equal(t, "looks good", task.Comments[0].Text)

		json.NewEncoder(w).Encode(taskJSON("task-1", "ended"))
	})
	mux.HandleFunc("/api/v1/task/task-1/delegate", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "jack,jill", r.URL.Query().Get("actors"))
		assert.Equal(t, "handover", r.URL.Query().Get("comment"))
		w.WriteHeader(http.StatusOK)
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		tasks, err := client.Tasks.List(ctx, TaskFilter{UserID: "georges", WorkflowInstanceID: "wf-1"})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "task-1", tasks[0].ID)
		assert.Equal(t, "opened", tasks[0].State)
	})

	t.Run("Complete", func(t *testing.T) {
		task, err := client.Tasks.Get(ctx, "task-1")
		require.NoError(t, err)

		err = task.Complete(ctx, "approve", CompleteOptions{
			Variables: map[string]interface{}{"review": "LGTM"},
			Comment:   "looks good",
		})
		require.NoError(t, err)
		assert.Equal(t, "ended", task.State)
	})

	t.Run("Delegate", func(t *testing.T) {
		task, err := client.Tasks.Get(ctx, "task-1")
		require.NoError(t, err)
		require.NoError(t, task.Delegate(ctx, "jack,jill", "handover"))
	})

	t.Run("TransferRejectsUnknownAction", func(t *testing.T) {
		task, err := client.Tasks.Get(ctx, "task-1")
		require.NoError(t, err)

		err = client.Tasks.Transfer(ctx, task, "forward", "jack", "")
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})
}

func TestWorkflowsAPI(t *testing.T) {
	workflowJSON := func(id string) map[string]interface{} {
		return map[string]interface{}{
			"entity-type":         "workflow",
			"id":                  id,
			"workflowModelName":   "SerialDocumentReview",
			"state":               "running",
			"attachedDocumentIds": []map[string]string{{"id": "doc-1"}},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/workflow", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var wf Workflow
			require.NoError(t, json.NewDecoder(r.Body).Decode(&wf))
			assert.Equal(t, "SerialDocumentReview", wf.WorkflowModelName)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(workflowJSON("wf-1"))
		case http.MethodGet:
			assert.Equal(t, "SerialDocumentReview", r.URL.Query().Get("workflowModelName"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"entity-type": "workflows",
				"entries":     []interface{}{workflowJSON("wf-1")},
			})
		}
	})
	mux.HandleFunc("/api/v1/workflow/wf-1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(workflowJSON("wf-1"))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/api/v1/workflow/wf-1/graph", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entity-type": "graph",
			"nodes":       []interface{}{},
		})
	})
	mux.HandleFunc("/api/v1/id/doc-1/@workflow", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(workflowJSON("wf-2"))
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("Start", func(t *testing.T) {
		wf, err := client.Workflows.Start(ctx, "SerialDocumentReview", StartOptions{
			AttachedDocumentIDs: []string{"doc-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "wf-1", wf.ID)
		assert.Equal(t, "running", wf.State)
	})

	t.Run("StartOnDocument", func(t *testing.T) {
		wf, err := client.Workflows.Start(ctx, "SerialDocumentReview", StartOptions{
			Document: &Document{UID: "doc-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "wf-2", wf.ID)
	})

	t.Run("StartRequiresModel", func(t *testing.T) {
		_, err := client.Workflows.Start(ctx, "", StartOptions{})
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})

	t.Run("Started", func(t *testing.T) {
		workflows, err := client.Workflows.Started(ctx, "SerialDocumentReview")
		require.NoError(t, err)
		require.Len(t, workflows, 1)
		assert.Equal(t, []Ref{{ID: "doc-1"}}, workflows[0].AttachedDocumentIDs)
	})

	t.Run("GraphAndDelete", func(t *testing.T) {
		wf, err := client.Workflows.Get(ctx, "wf-1")
		require.NoError(t, err)

		graph, err := wf.Graph(ctx)
		require.NoError(t, err)
		assert.Equal(t, "graph", graph["entity-type"])

		require.NoError(t, wf.Delete(ctx))
	})
}
