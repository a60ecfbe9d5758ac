package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/pkg/jwt"
)

// --- Service stubs ---

type stubArticleService struct {
	article *domain.Article
	err     error
}

func (s *stubArticleService) Get(_ context.Context, postID uint64, _ uint64) (*domain.Article, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.article != nil {
		return s.article, nil
	}
	return &domain.Article{
		PostID: postID,
		Status: domain.ArticleStatus{CanRestore: false, IsLocked: true},
	}, nil
}

func (s *stubArticleService) Revisions(_ context.Context, _ uint64, _ int) ([]*domain.RevisionItem, int, error) {
	return nil, 1, nil
}

type stubRestoreService struct {
	restoredPostID uint64
	restoreErr     error
	canRestoreErr  error
	locked         bool
}

func (s *stubRestoreService) Restore(_ context.Context, _ uint64, _ uint64) (uint64, error) {
	if s.restoreErr != nil {
		return 0, s.restoreErr
	}
	return s.restoredPostID, nil
}

func (s *stubRestoreService) CanRestore(_ context.Context, _ uint64, _ uint64) error {
	return s.canRestoreErr
}

func (s *stubRestoreService) IsLocked(_ context.Context, _ uint64, _ uint64) bool {
	return s.locked
}

func (s *stubRestoreService) PurgeStaleAutosaves(_ context.Context, _ uint64) error {
	return nil
}

type stubMetaService struct {
	updateErr error
	updated   map[string]interface{}
}

func (s *stubMetaService) OnRevisionCreated(_ context.Context, _ uint64, _ uint64) error { return nil }
func (s *stubMetaService) ShouldCreateRevision(_ domain.SaveContext, _ *domain.Post, _ *domain.Post, _ bool) (bool, error) {
	return false, nil
}
func (s *stubMetaService) SyncRevisionMeta(_ *domain.Post) error { return nil }
func (s *stubMetaService) UpdateAutosave(_ context.Context, _ uint64, meta map[string]interface{}, _ uint64) error {
	s.updated = meta
	return s.updateErr
}
func (s *stubMetaService) SaveData(_ uint64) (*domain.SaveData, error) {
	return &domain.SaveData{}, nil
}
func (s *stubMetaService) AutosaveIDs(_ context.Context, _ uint64, _ bool) ([]uint64, error) {
	return nil, nil
}
func (s *stubMetaService) RevisionsCount(_ uint64, _ bool, _ string) (int, error) { return 0, nil }

// --- Harness ---

func newTestRouter(h *RevisionHandler, jwtManager *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api/revisions/v1")
	api.Use(middleware.JWTAuth(jwtManager))
	api.POST("/restore/:revision_id", h.Restore)
	api.GET("/check-status/:post_id", h.CheckStatus)
	api.GET("/post/:post_id", h.GetPost)
	api.POST("/autosave/:autosave_id", h.UpdateAutosave)

	return router
}

func testToken(t *testing.T, jwtManager *jwt.Manager) string {
	t.Helper()
	token, err := jwtManager.GenerateToken(1, "editor", 1)
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestRequestsWithoutTokenAreForbidden(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	h := NewRevisionHandler(&stubArticleService{}, &stubRestoreService{}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)

	paths := []struct {
		method string
		path   string
	}{
		{"POST", "/api/revisions/v1/restore/5"},
		{"GET", "/api/revisions/v1/check-status/5"},
		{"GET", "/api/revisions/v1/post/5"},
		{"POST", "/api/revisions/v1/autosave/5"},
	}

	for _, p := range paths {
		w := doRequest(router, p.method, p.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)

		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "rest_forbidden", body["error"]["code"])
	}
}

func TestRestoreMissingParam(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	h := NewRevisionHandler(&stubArticleService{}, &stubRestoreService{}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "POST", "/api/revisions/v1/restore/0", token, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "missing_param", body["error"]["code"])
}

func TestRestoreSuccessShape(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	h := NewRevisionHandler(&stubArticleService{},
		&stubRestoreService{restoredPostID: 42}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "POST", "/api/revisions/v1/restore/7", token, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			PostID uint64 `json:"postId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, uint64(42), body.Data.PostID)
}

func TestRestoreErrorTaxonomyPassesThrough(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	token := ""

	cases := []struct {
		err        *common.APIError
		wantStatus int
		wantCode   string
	}{
		{common.ErrRestoreForbidden, http.StatusUnauthorized, "rest_forbidden"},
		{common.ErrParentNotFound, http.StatusNotFound, "rest_not_found"},
		{common.ErrPostLocked, http.StatusBadRequest, "rest_post_locked"},
		{common.ErrInvalidRevisionID, http.StatusNotFound, "rest_revision_invalid_id"},
	}

	for _, tc := range cases {
		h := NewRevisionHandler(&stubArticleService{},
			&stubRestoreService{restoreErr: tc.err}, &stubMetaService{})
		router := newTestRouter(h, jwtManager)
		if token == "" {
			token = testToken(t, jwtManager)
		}

		w := doRequest(router, "POST", "/api/revisions/v1/restore/7", token, "")

		assert.Equal(t, tc.wantStatus, w.Code, tc.wantCode)
		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.wantCode, body["error"]["code"])
	}
}

func TestCheckStatusLockedPost(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	h := NewRevisionHandler(&stubArticleService{},
		&stubRestoreService{canRestoreErr: common.ErrPostLocked, locked: true}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "GET", "/api/revisions/v1/check-status/5", token, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body["canRestore"])
	assert.True(t, body["isLocked"])
}

func TestGetPostMissingPostStub(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	h := NewRevisionHandler(&stubArticleService{}, &stubRestoreService{}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "GET", "/api/revisions/v1/post/77", token, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		PostID uint64      `json:"postId"`
		Post   interface{} `json:"post"`
		Status struct {
			CanRestore bool `json:"canRestore"`
			IsLocked   bool `json:"isLocked"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(77), body.PostID)
	assert.Equal(t, false, body.Post)
	assert.False(t, body.Status.CanRestore)
	assert.True(t, body.Status.IsLocked)
}

func TestGetPostAggregate(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	article := &domain.Article{
		PostID:    5,
		Exists:    true,
		Post:      &domain.RevisionItem{ID: 5, NPStatus: "publish"},
		Revisions: []*domain.RevisionItem{{ID: 9, NPStatus: "draft"}},
		MaxPages:  1,
		Status:    domain.ArticleStatus{CanRestore: true},
	}
	h := NewRevisionHandler(&stubArticleService{article: article}, &stubRestoreService{}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "GET", "/api/revisions/v1/post/5", token, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body domain.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(5), body.PostID)
	require.Len(t, body.Revisions, 1)
	assert.Equal(t, "draft", body.Revisions[0].NPStatus)
}

func TestUpdateAutosaveWithoutMetaIsNoop(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	meta := &stubMetaService{}
	h := NewRevisionHandler(&stubArticleService{}, &stubRestoreService{}, meta)
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "POST", "/api/revisions/v1/autosave/5", token,
		`{"post_type":"post"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", strings.TrimSpace(w.Body.String()))
	assert.Nil(t, meta.updated)
}

func TestUpdateAutosaveMissingPostType(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	h := NewRevisionHandler(&stubArticleService{}, &stubRestoreService{}, &stubMetaService{})
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "POST", "/api/revisions/v1/autosave/5", token, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAutosaveAppliesMeta(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	meta := &stubMetaService{}
	h := NewRevisionHandler(&stubArticleService{}, &stubRestoreService{}, meta)
	router := newTestRouter(h, jwtManager)
	token := testToken(t, jwtManager)

	w := doRequest(router, "POST", "/api/revisions/v1/autosave/5", token,
		`{"post_type":"post","meta":{"subtitle":"hello"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", meta.updated["subtitle"])
}
