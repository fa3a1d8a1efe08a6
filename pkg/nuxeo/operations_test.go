package nuxeo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registryHandler serves a minimal automation registry.
func registryHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"operations": []map[string]interface{}{
				{
					"id":      "Document.Fetch",
					"aliases": []string{"Repository.GetDocument"},
					"params": []map[string]interface{}{
						{"name": "value", "type": "string", "required": true},
					},
				},
				{
					"id": "Document.AddToCollection",
					"params": []map[string]interface{}{
						{"name": "collection", "type": "document", "required": true},
					},
				},
				{
					"id": "Params.Matrix",
					"params": []map[string]interface{}{
						{"name": "str", "type": "string"},
						{"name": "bool", "type": "boolean"},
						{"name": "int", "type": "integer"},
						{"name": "float", "type": "double"},
						{"name": "date", "type": "date"},
						{"name": "list", "type": "list"},
						{"name": "strlist", "type": "stringlist"},
						{"name": "blob", "type": "blob"},
						{"name": "props", "type": "properties"},
						{"name": "obj", "type": "object"},
					},
				},
			},
			"chains": []map[string]interface{}{
				{"id": "MyChain", "params": []map[string]interface{}{}},
			},
		})
	}
}

func TestOperationRegistry(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/site/automation", func(w http.ResponseWriter, r *http.Request) {
		calls++
		registryHandler(t)(w, r)
	})
	client, _ := newTestClient(t, mux)

	registry, err := client.Operations.Registry(context.Background())
	require.NoError(t, err)

	assert.Contains(t, registry, "Document.Fetch")
	assert.Contains(t, registry, "MyChain")

	// Aliases resolve to the canonical descriptor.
	assert.Equal(t, registry["Document.Fetch"], registry["Repository.GetDocument"])

	// Cached after the first fetch.
	_, err = client.Operations.Registry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCheckParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/automation", registryHandler(t))
	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("UnknownOperation", func(t *testing.T) {
		err := client.Operations.CheckParams(ctx, client.Operations.New("No.Such.Op"))
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})

	t.Run("MissingRequiredParam", func(t *testing.T) {
		err := client.Operations.CheckParams(ctx, client.Operations.New("Document.Fetch"))
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
		assert.Contains(t, err.Error(), `missing required parameter "value"`)
	})

	t.Run("UnexpectedParam", func(t *testing.T) {
		op := client.Operations.New("Document.Fetch")
		op.Params["value"] = "doc-1"
		op.Params["bogus"] = 1

		err := client.Operations.CheckParams(ctx, op)
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
		assert.Contains(t, err.Error(), `unexpected parameter "bogus"`)
	})

	t.Run("AccumulatesViolations", func(t *testing.T) {
		op := client.Operations.New("Document.Fetch")
		op.Params["value"] = 42
		op.Params["bogus"] = 1

		err := client.Operations.CheckParams(ctx, op)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `parameter "value" expects type string`)
		assert.Contains(t, err.Error(), `unexpected parameter "bogus"`)
	})

	t.Run("TypeMatrix", func(t *testing.T) {
		accepted := map[string]interface{}{
			"str":     "text",
			"bool":    true,
			"int":     7,
			"float":   3.14,
			"date":    time.Now(),
			"list":    []string{"a"},
			"strlist": "a,b",
			"blob":    NewBufferBlob([]byte("x"), "x.bin"),
			"props":   map[string]interface{}{"dc:title": "t"},
			"obj":     struct{}{},
		}
		op := client.Operations.New("Params.Matrix")
		op.Params = accepted
		require.NoError(t, client.Operations.CheckParams(ctx, op))

		rejected := map[string]interface{}{
			"str":   42,
			"bool":  "yes",
			"int":   "7",
			"float": "3.14",
			"date":  42,
			"list":  "not-a-list",
			"blob":  42,
			"props": "dc:title=t",
		}
		for name, value := range rejected {
			op := client.Operations.New("Params.Matrix")
			op.Params[name] = value
			err := client.Operations.CheckParams(ctx, op)
			require.Errorf(t, err, "param %q should reject %T", name, value)
		}
	})

	t.Run("NilValuesPass", func(t *testing.T) {
		op := client.Operations.New("Params.Matrix")
		op.Params["str"] = nil
		require.NoError(t, client.Operations.CheckParams(ctx, op))
	})

	t.Run("DocumentParamAcceptsModelOrRef", func(t *testing.T) {
		for _, value := range []interface{}{"doc-1", &Document{UID: "doc-1"}} {
			op := client.Operations.New("Document.AddToCollection")
			op.Params["collection"] = value
			require.NoError(t, client.Operations.CheckParams(ctx, op))
		}
	})
}

func TestOperationExecute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/automation", registryHandler(t))
	mux.HandleFunc("/site/automation/Document.Fetch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json+nxrequest", r.Header.Get("Content-Type"))

		var body struct {
			Params map[string]interface{} `json:"params"`
			Input  string                 `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "doc-1", body.Params["value"])

		json.NewEncoder(w).Encode(documentJSON("doc-1"))
	})
	mux.HandleFunc("/site/automation/Document.Lock", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.Header.Get("X-NXVoidOperation"))

		var body struct {
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "doc:doc-1", body.Input)
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("DecodesResult", func(t *testing.T) {
		op := client.Operations.New("Document.Fetch")
		op.Params["value"] = "doc-1"

		var doc Document
		require.NoError(t, client.Operations.Execute(ctx, op, &doc))
		assert.Equal(t, "doc-1", doc.UID)
	})

	t.Run("VoidCall", func(t *testing.T) {
		op := client.Operations.New("Document.Lock")
		op.Input = &Document{UID: "doc-1"}
		require.NoError(t, client.Operations.Execute(ctx, op, nil))
	})

	t.Run("RejectsUnsupportedInput", func(t *testing.T) {
		op := client.Operations.New("Document.Fetch")
		op.Input = 42

		err := client.Operations.Execute(ctx, op, nil)
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})

	t.Run("ChecksParamsWhenConfigured", func(t *testing.T) {
		srvURL := client.config.BaseURL
		strict, err := NewClient(&Config{BaseURL: srvURL, CheckParams: true}, nil)
		require.NoError(t, err)

		err = strict.Operations.Execute(ctx, strict.Operations.New("No.Such.Op"), nil)
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})
}

func TestOperationExecuteWithBlobInput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/site/automation/Blob.AttachOnDocument", r.URL.Path)

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		reader := multipart.NewReader(r.Body, params["boundary"])

		requestPart, err := reader.NextPart()
		require.NoError(t, err)
		var body struct {
			Params map[string]interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(requestPart).Decode(&body))
		assert.Equal(t, "doc:doc-1", body.Params["document"])

		blobPart, err := reader.NextPart()
		require.NoError(t, err)
		content, err := io.ReadAll(blobPart)
		require.NoError(t, err)
		assert.Equal(t, "blob bytes", string(content))

		w.WriteHeader(http.StatusNoContent)
	}))

	op := client.Operations.New("Blob.AttachOnDocument")
	op.Params["document"] = "doc:doc-1"
	op.Input = NewBufferBlob([]byte("blob bytes"), "file.bin")

	require.NoError(t, client.Operations.Execute(context.Background(), op, nil))
}

func TestExecuteTo(t *testing.T) {
	payload := []byte("rendered content")
	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	ctx := context.Background()

	t.Run("VerifiesDigest", func(t *testing.T) {
		var buf bytes.Buffer
		op := client.Operations.New("Blob.Get")
		op.Input = docRef("doc-1")

		n, err := client.Operations.ExecuteTo(ctx, op, &buf, digest)
		require.NoError(t, err)
		assert.EqualValues(t, len(payload), n)
		assert.Equal(t, payload, buf.Bytes())
	})

	t.Run("DigestMismatch", func(t *testing.T) {
		var buf bytes.Buffer
		op := client.Operations.New("Blob.Get")

		_, err := client.Operations.ExecuteTo(ctx, op, &buf, strings.Repeat("0", 64))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "digest mismatch")
	})

	t.Run("UnknownDigestLength", func(t *testing.T) {
		var buf bytes.Buffer
		op := client.Operations.New("Blob.Get")

		_, err := client.Operations.ExecuteTo(ctx, op, &buf, "abc123")
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})
}
