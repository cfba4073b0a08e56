package member

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTopLevelResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/member", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(Member{ID: 7, IdentityID: "u1", Name: "Ivan", Role: RoleAdmin})
	}))
	defer server.Close()

	g := NewGateway(server.URL, "secret")
	m, err := g.Find(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.ID)
	assert.True(t, m.IsAdmin())
}

func TestFindNestedMemberResponse(t *testing.T) {
	// Some backend endpoints wrap the record under a "member" key.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"member":{"id":7,"user_id":"u1","name":"Ivan","role":"member"}}`))
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	m, err := g.Find(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ivan", m.Name)
	assert.False(t, m.IsAdmin())
}

func TestFindNotFoundStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	_, err := g.Find(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindEmptyObjectMeansNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	_, err := g.Find(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindServerErrorIsNotNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	_, err := g.Find(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCreateSendsZeroedCounters(t *testing.T) {
	var got NewMember
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"member": Member{ID: 1, IdentityID: got.IdentityID, Name: got.Name, Role: RoleMember},
		})
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	m, err := g.Create(context.Background(), NewMember{
		Name:       "reader42",
		Points:     0,
		BooksRead:  0,
		IdentityID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, "reader42", got.Name)
	assert.Equal(t, 0, got.Points)
	assert.Equal(t, 0, got.BooksRead)
	assert.Equal(t, "u1", got.IdentityID)
	assert.Equal(t, int64(1), m.ID)
}

func TestUpdateName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/member/7", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(Member{ID: 7, IdentityID: "u1", Name: body["name"]})
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	m, err := g.UpdateName(context.Background(), 7, "Bookworm")
	require.NoError(t, err)
	assert.Equal(t, "Bookworm", m.Name)
}
