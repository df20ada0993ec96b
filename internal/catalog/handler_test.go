package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/auth"
)

func newTestRouter(t *testing.T, required bool) (*gin.Engine, *auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenService([]byte("catalog-test-secret"), time.Hour)
	r := gin.New()
	RegisterRoutes(r, newTestService(t), auth.NewGuards(tokens, required))
	return r, tokens
}

func send(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateAndList(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := send(r, http.MethodPost, "/books", `{"id":1,"title":"Go","author":"Pike","category":"cs","quantity":2}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/books/1", w.Header().Get("Location"))

	w = send(r, http.MethodPost, "/books", `{"id":1,"title":"Go","author":"Pike"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Book with ID 1 already exists")

	w = send(r, http.MethodGet, "/books", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []BookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].Available)

	w = send(r, http.MethodGet, "/books/1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = send(r, http.MethodGet, "/books/99", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = send(r, http.MethodGet, "/books/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(r, http.MethodGet, "/books?available=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Bulk(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := send(r, http.MethodPost, "/books/bulk", `{"books":[{"id":1,"title":"A","author":"X"},{"id":2,"title":"B","author":"Y","quantity":0}]}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created []BookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created, 2)
	assert.False(t, created[1].Available)

	w = send(r, http.MethodPost, "/books/bulk", `{"books":[]}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/books/bulk", `{"books":[{"id":3,"title":"C","author":"Z"},{"id":1,"title":"A","author":"X"}]}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = send(r, http.MethodGet, "/books/3", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_InventoryRequiresAdmin(t *testing.T) {
	r, tokens := newTestRouter(t, true)

	student, err := tokens.Issue(auth.Principal{UserID: 7, Email: "s@example.com", Role: auth.RoleStudent})
	require.NoError(t, err)
	admin, err := tokens.Issue(auth.Principal{UserID: 1, Email: "a@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	body := `{"id":1,"title":"Go","author":"Pike"}`
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodPost, "/books", body, "").Code)
	assert.Equal(t, http.StatusForbidden, send(r, http.MethodPost, "/books", body, student).Code)
	assert.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/books", body, admin).Code)

	// 一覧は認証なしで見られる
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/books", "", "").Code)
}
