package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard-io/fraudguard/engine"
)

const enginesPath = "/projects/demo/locations/us-central1/reasoningEngines"

func newTestClient(t *testing.T, handler http.Handler) *engine.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return engine.NewClient("demo", "us-central1", engine.StaticToken("test-token"), func(o *engine.Options) {
		o.BaseURL = srv.URL
	})
}

func TestClient_Create(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, enginesPath, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req engine.CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Fraud Agent", req.DisplayName)

		json.NewEncoder(w).Encode(engine.Engine{
			Name:        enginesPath[1:] + "/12345",
			DisplayName: req.DisplayName,
		})
	}))

	created, err := client.Create(context.Background(), engine.CreateRequest{
		DisplayName: "Fraud Agent",
		Description: "Determines risk of fraud in transactions.",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345", created.ShortID())
}

func TestClient_CreateRequiresDisplayName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Create(context.Background(), engine.CreateRequest{})
	require.Error(t, err)
}

func TestClient_ListFollowsPagination(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pageToken") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"reasoningEngines": []engine.Engine{{Name: "a/1"}, {Name: "a/2"}},
				"nextPageToken":    "page-2",
			})
		case "page-2":
			json.NewEncoder(w).Encode(map[string]any{
				"reasoningEngines": []engine.Engine{{Name: "a/3"}},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))

	engines, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, engines, 3)
	assert.Equal(t, "3", engines[2].ShortID())
}

func TestClient_FindByShortID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"reasoningEngines": []engine.Engine{
				{Name: enginesPath[1:] + "/11111", DisplayName: "Other Agent"},
				{Name: enginesPath[1:] + "/98765", DisplayName: "Fraud Agent"},
			},
		})
	}))

	found, err := client.FindByShortID(context.Background(), "98765")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Fraud Agent", found.DisplayName)

	missing, err := client.FindByShortID(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClient_DeleteForce(t *testing.T) {
	var gotForce string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotForce = r.URL.Query().Get("force")
		w.WriteHeader(http.StatusOK)
	}))

	err := client.Delete(context.Background(), enginesPath[1:]+"/98765", true)
	require.NoError(t, err)
	assert.Equal(t, "true", gotForce)
}

func TestClient_DeleteMissingIsNotAnError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 404}}`, http.StatusNotFound)
	}))

	require.NoError(t, client.Delete(context.Background(), enginesPath[1:]+"/98765", true))
}

func TestClient_ServerErrorSurfaced(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
