package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trading-journal-backend/internal/models"
	"trading-journal-backend/internal/services/finalize"
	"trading-journal-backend/internal/services/session"
)

type fakeFinalizer struct {
	resp *finalize.Response
	err  error

	gotUser string
	gotReq  finalize.Request
}

func (f *fakeFinalizer) Finalize(ctx context.Context, userID string, req finalize.Request) (*finalize.Response, error) {
	f.gotUser = userID
	f.gotReq = req
	return f.resp, f.err
}

func finalizeRouter(f *fakeFinalizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &IngestionHandler{finalizer: f}
	r := gin.New()
	r.POST("/finalize", func(c *gin.Context) {
		c.Set("userID", "user-1")
		h.FinalizeMappings(c)
	})
	return r
}

func postJSON(t *testing.T, r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/finalize", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFinalizeMappingsSuccess(t *testing.T) {
	f := &fakeFinalizer{resp: &finalize.Response{Success: true, SuccessCount: 10}}
	r := finalizeRouter(f)
	batchID := uuid.New()

	w := postJSON(t, r, map[string]interface{}{
		"importBatchId":     batchID.String(),
		"userApproved":      true,
		"correctedMappings": map[string]string{"Qty": "orderQuantity"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", f.gotUser)
	require.Equal(t, batchID, f.gotReq.ImportBatchID)
	require.True(t, f.gotReq.UserApproved)
	require.Equal(t, map[string]string{"Qty": "orderQuantity"}, f.gotReq.CorrectedMappings)

	var resp finalize.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 10, resp.SuccessCount)
}

func TestFinalizeMappingsValidation(t *testing.T) {
	r := finalizeRouter(&fakeFinalizer{})

	w := postJSON(t, r, map[string]interface{}{"userApproved": true})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, r, map[string]interface{}{"importBatchId": "not-a-uuid"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeBatchStore struct {
	batch *models.ImportBatch
}

func (f *fakeBatchStore) BatchByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	if f.batch != nil && f.batch.ID == id {
		return f.batch, nil
	}
	return nil, nil
}

type fakeSessionStore struct {
	attempts int
}

func (f *fakeSessionStore) LatestActiveSessionBatch(ctx context.Context, userID, filename string, since time.Time) (*models.ImportBatch, error) {
	return nil, nil
}

func (f *fakeSessionStore) SessionCompletedRows(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeSessionStore) SessionAttemptCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return f.attempts, nil
}

func (f *fakeSessionStore) MarkSessionComplete(ctx context.Context, sessionID, batchID uuid.UUID) (bool, error) {
	return false, nil
}

func progressRouter(store *fakeBatchStore, sessions *session.Tracker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &IngestionHandler{store: store, sessions: sessions}
	r := gin.New()
	r.GET("/batches/:batchId", func(c *gin.Context) {
		c.Set("userID", "user-1")
		h.GetBatchProgress(c)
	})
	return r
}

func TestGetBatchProgress(t *testing.T) {
	sessionID := uuid.New()
	batch := &models.ImportBatch{
		ID:              uuid.New(),
		UserID:          "user-1",
		Status:          models.BatchStatusFailed,
		TotalRecords:    10,
		SuccessCount:    7,
		ErrorCount:      3,
		UploadSessionID: &sessionID,
	}
	tracker := session.NewTracker(&fakeSessionStore{attempts: 2}, time.Hour)
	r := progressRouter(&fakeBatchStore{batch: batch}, tracker)

	req := httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, models.BatchStatusFailed, resp["status"])
	require.Equal(t, true, resp["terminal"])
	require.Equal(t, float64(2), resp["sessionAttempts"])
	require.Equal(t, float64(3), resp["errorCount"])
}

func TestGetBatchProgressHidesForeignBatch(t *testing.T) {
	batch := &models.ImportBatch{ID: uuid.New(), UserID: "somebody-else"}
	tracker := session.NewTracker(&fakeSessionStore{}, time.Hour)
	r := progressRouter(&fakeBatchStore{batch: batch}, tracker)

	req := httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinalizeMappingsErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{finalize.ErrBatchNotFound, http.StatusNotFound},
		{finalize.ErrNotOwner, http.StatusForbidden},
		{finalize.ErrBatchNotPending, http.StatusConflict},
		{finalize.ErrNoPendingMappings, http.StatusBadRequest},
		{finalize.ErrExpiredUpload, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := finalizeRouter(&fakeFinalizer{err: tc.err})
		w := postJSON(t, r, map[string]interface{}{"importBatchId": uuid.New().String()})
		require.Equal(t, tc.code, w.Code, tc.err)
	}
}
