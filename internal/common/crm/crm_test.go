package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// CreateTask Tests
// ==========================

func TestClient_CreateTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Tasks", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		var payload struct {
			Data []Task `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload.Data, 1)
		assert.Equal(t, "Retention review", payload.Data[0].Subject)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":[{"code":"SUCCESS","details":{"id":"task-77"},"message":"created","status":"success"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	id, err := client.CreateTask(context.Background(), &Task{
		Subject:  "Retention review",
		ClientID: "client-123",
		Owner:    "csm-anna",
	})

	assert.NoError(t, err)
	assert.Equal(t, "task-77", id)
}

func TestClient_CreateTask_RejectedByAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[{"code":"INVALID_DATA","details":{},"message":"owner not found","status":"error"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	_, err := client.CreateTask(context.Background(), &Task{Subject: "Retention review"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "owner not found")
}

func TestClient_CreateTask_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	_, err := client.CreateTask(context.Background(), &Task{Subject: "Retention review"})

	assert.Error(t, err)
}
