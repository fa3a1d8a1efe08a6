package nuxeo

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userJSON(id string) map[string]interface{} {
	return map[string]interface{}{
		"entity-type": "user",
		"id":          id,
		"properties": map[string]interface{}{
			"username":  id,
			"firstName": "Georges",
		},
	}
}

func TestUsersAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/user/georges", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(userJSON("georges"))
		case http.MethodPut:
			var user User
			require.NoError(t, json.NewDecoder(r.Body).Decode(&user))
			json.NewEncoder(w).Encode(userJSON(user.ID))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/api/v1/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var user User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&user))
		assert.Equal(t, "user", user.EntityType)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(userJSON(user.ID))
	})
	mux.HandleFunc("/api/v1/user/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geo*", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entity-type": "users",
			"entries":     []interface{}{userJSON("georges")},
		})
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		user, err := client.Users.Get(ctx, "georges")
		require.NoError(t, err)
		assert.Equal(t, "georges", user.ID)
		assert.Equal(t, "Georges", user.Properties["firstName"])
	})

	t.Run("Create", func(t *testing.T) {
		user, err := client.Users.Create(ctx, &User{
			ID:         "georges",
			Properties: map[string]interface{}{"username": "georges"},
		})
		require.NoError(t, err)
		assert.Equal(t, "georges", user.ID)
	})

	t.Run("SaveRoundtrip", func(t *testing.T) {
		user, err := client.Users.Get(ctx, "georges")
		require.NoError(t, err)
		require.NoError(t, user.ChangePassword(ctx, "s3cret"))
	})

	t.Run("DeleteAndExists", func(t *testing.T) {
		require.NoError(t, client.Users.Delete(ctx, "georges"))

		ok, err := client.Users.Exists(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Search", func(t *testing.T) {
		users, err := client.Users.Search(ctx, "geo*")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "georges", users[0].ID)
	})
}

func TestGroupsAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/group/reviewers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"entity-type": "group",
				"groupname":   "reviewers",
				"grouplabel":  "Reviewers",
				"memberUsers": []string{"georges"},
			})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/api/v1/group", func(w http.ResponseWriter, r *http.Request) {
		var group Group
		require.NoError(t, json.NewDecoder(r.Body).Decode(&group))
		assert.Equal(t, "group", group.EntityType)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(group)
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	group, err := client.Groups.Get(ctx, "reviewers")
	require.NoError(t, err)
	assert.Equal(t, "Reviewers", group.GroupLabel)
	assert.Equal(t, []string{"georges"}, group.MemberUsers)

	created, err := client.Groups.Create(ctx, &Group{GroupName: "editors"})
	require.NoError(t, err)
	assert.Equal(t, "editors", created.GroupName)

	require.NoError(t, group.Delete(ctx))
}

func TestDirectoriesAPI(t *testing.T) {
	entry := func(id, label string) map[string]interface{} {
		return map[string]interface{}{
			"entity-type":   "directoryEntry",
			"directoryName": "nature",
			"properties":    map[string]interface{}{"id": id, "label": label},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/directory/nature", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"entity-type": "directoryEntries",
				"entries":     []interface{}{entry("article", "Article"), entry("报告", "Report")},
			})
		case http.MethodPost:
			var e DirectoryEntry
			require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
			assert.Equal(t, "directoryEntry", e.EntityType)
			assert.Equal(t, "nature", e.DirectoryName)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(e)
		}
	})
	mux.HandleFunc("/api/v1/directory/nature/article", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(entry("article", "Article"))
		case http.MethodPut:
			var e DirectoryEntry
			require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
			json.NewEncoder(w).Encode(e)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("Fetch", func(t *testing.T) {
		dir, err := client.Directories.Fetch(ctx, "nature")
		require.NoError(t, err)
		require.Len(t, dir.Entries, 2)
		assert.Equal(t, "article", dir.Entries[0].ID())
	})

	t.Run("EntryLifecycle", func(t *testing.T) {
		e, err := client.Directories.FetchEntry(ctx, "nature", "article")
		require.NoError(t, err)
		assert.Equal(t, "Article", e.Properties["label"])

		e.Properties["label"] = "長い記事"
		require.NoError(t, e.Save(ctx))

		require.NoError(t, e.Delete(ctx))
	})

	t.Run("CreateDefaultsEntityType", func(t *testing.T) {
		e, err := client.Directories.CreateEntry(ctx, "nature", &DirectoryEntry{
			Properties: map[string]interface{}{"id": "memo", "label": "Memo"},
		})
		require.NoError(t, err)
		assert.Equal(t, "memo", e.ID())
	})

	t.Run("UpdateEntryRequiresID", func(t *testing.T) {
		_, err := client.Directories.UpdateEntry(ctx, "nature", &DirectoryEntry{})
		var badQuery *BadQueryError
		require.ErrorAs(t, err, &badQuery)
	})

	t.Run("HasEntry", func(t *testing.T) {
		ok, err := client.Directories.HasEntry(ctx, "nature", "article")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = client.Directories.HasEntry(ctx, "nature", "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
