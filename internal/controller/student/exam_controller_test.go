package student

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kartikasari/ujianku/internal/dto"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttemptService struct {
	startResp *dto.AttemptResponse
	startErr  error
	questions []dto.QuestionDelivery
	lastActor model.Actor
}

func (s *stubAttemptService) StartAttempt(ctx context.Context, actor model.Actor, examID, studentID uint) (*dto.AttemptResponse, error) {
	s.lastActor = actor
	return s.startResp, s.startErr
}

func (s *stubAttemptService) GetAttemptDetails(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailResponse, error) {
	return &dto.AttemptDetailResponse{ID: attemptID}, nil
}

func (s *stubAttemptService) RandomizedQuestions(ctx context.Context, actor model.Actor, examID uint, randomizeQuestions, randomizeAnswers *bool) ([]dto.QuestionDelivery, error) {
	s.lastActor = actor
	return s.questions, nil
}

type stubAutoSaveService struct {
	saveResult *service.SaveResult
	saveErr    error
	quality    service.ConnectionQuality
	interval   time.Duration
}

func (s *stubAutoSaveService) SaveAnswer(ctx context.Context, actor model.Actor, attemptID, questionID uint, value string, isAutoSave bool) (*service.SaveResult, error) {
	return s.saveResult, s.saveErr
}

func (s *stubAutoSaveService) BatchSaveAnswers(ctx context.Context, actor model.Actor, attemptID uint, answers map[uint]string) (*service.BatchSaveResult, error) {
	return &service.BatchSaveResult{Success: true, SuccessCount: len(answers)}, nil
}

func (s *stubAutoSaveService) ProcessQueuedAnswers(ctx context.Context, attemptID *uint) (*service.QueueDrainResult, error) {
	return &service.QueueDrainResult{}, nil
}

func (s *stubAutoSaveService) PurgeQueue(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (s *stubAutoSaveService) RecommendedInterval(attemptID uint) time.Duration {
	return s.interval
}

func (s *stubAutoSaveService) ConnectionQuality(attemptID uint) service.ConnectionQuality {
	return s.quality
}

func newTestRouter(attempts *stubAttemptService, saves *stubAutoSaveService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	c := NewExamController(attempts, saves)

	v1 := router.Group("/api/v1")
	v1.GET("/exams/:exam_id/questions", c.GetRandomizedQuestions)
	v1.POST("/exams/:exam_id/attempts", c.StartAttempt)
	v1.POST("/attempts/:attempt_id/answers", c.SaveAnswer)
	v1.GET("/attempts/:attempt_id/save-interval", c.GetSaveInterval)
	return router
}

func withIdentity(req *http.Request) *http.Request {
	req.Header.Set("X-User-ID", "10")
	req.Header.Set("X-School-ID", "1")
	req.Header.Set("X-User-Role", "student")
	return req
}

func TestStartAttemptEndpoint(t *testing.T) {
	attempts := &stubAttemptService{
		startResp: &dto.AttemptResponse{ID: 5, ExamID: 2, StudentID: 10, Status: model.AttemptInProgress},
	}
	router := newTestRouter(attempts, &stubAutoSaveService{})

	body, _ := json.Marshal(dto.StartAttemptRequest{StudentID: 10})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/exams/2/attempts", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.AttemptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint(5), resp.ID)
	assert.Equal(t, model.Actor{UserID: 10, Role: "student", SchoolID: 1}, attempts.lastActor)
}

func TestStartAttemptRequiresIdentityHeaders(t *testing.T) {
	router := newTestRouter(&stubAttemptService{}, &stubAutoSaveService{})

	body, _ := json.Marshal(dto.StartAttemptRequest{StudentID: 10})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exams/2/attempts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSaveAnswerEndpoint(t *testing.T) {
	saves := &stubAutoSaveService{
		saveResult: &service.SaveResult{Status: service.SaveStatusQueued, Timestamp: time.Now()},
	}
	router := newTestRouter(&stubAttemptService{}, saves)

	body, _ := json.Marshal(dto.SaveAnswerRequest{QuestionID: 7, Value: "B", IsAutoSave: true})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/attempts/1/answers", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.SaveAnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Status)
}

func TestSaveAnswerRejectsBadBody(t *testing.T) {
	router := newTestRouter(&stubAttemptService{}, &stubAutoSaveService{})

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/attempts/1/answers", bytes.NewBufferString(`{"value":""}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAnswerInvalidAttemptID(t *testing.T) {
	router := newTestRouter(&stubAttemptService{}, &stubAutoSaveService{})

	body, _ := json.Marshal(dto.SaveAnswerRequest{QuestionID: 7, Value: "B"})
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/attempts/abc/answers", bytes.NewReader(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSaveIntervalEndpoint(t *testing.T) {
	saves := &stubAutoSaveService{quality: service.QualityModerate, interval: service.IntervalModerate}
	router := newTestRouter(&stubAttemptService{}, saves)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/attempts/1/save-interval", nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.SaveIntervalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "moderate", resp.Quality)
	assert.Equal(t, 60, resp.RecommendedSeconds)
}
