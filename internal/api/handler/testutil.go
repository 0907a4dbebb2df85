// Package handler provides test utilities for HTTP handler testing.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/voicebot/codexreview/internal/engine"
	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/internal/telegram"
)

// SetupTestRouter creates a Gin router for testing.
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// CreateTestRequest creates an HTTP request for testing.
func CreateTestRequest(method, url string, body interface{}) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	return req
}

// DecodeJSON decodes the recorder body into a map.
func DecodeJSON(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response should be valid JSON: %v (%s)", err, recorder.Body.String())
	}
	return body
}

// AssertErrorResponse asserts the status and the {code, message} error body.
func AssertErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	if recorder.Code != expectedStatus {
		t.Errorf("Status code mismatch: got %d, want %d", recorder.Code, expectedStatus)
	}

	body := DecodeJSON(t, recorder)
	if _, ok := body["message"]; !ok {
		t.Error("Error response should contain a 'message' field")
	}
	if expectedCode != "" && body["code"] != expectedCode {
		t.Errorf("code = %v, want %s", body["code"], expectedCode)
	}
}

// MockEnqueuer records enqueued jobs.
type MockEnqueuer struct {
	mu     sync.Mutex
	Jobs   []*engine.Job
	Refuse bool
}

func (m *MockEnqueuer) Enqueue(job *engine.Job) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Refuse {
		return false
	}
	m.Jobs = append(m.Jobs, job)
	return true
}

func (m *MockEnqueuer) HasTask(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.Jobs {
		if job.Data.TaskID == taskID {
			return true
		}
	}
	return false
}

// MockJobHandler returns a canned result.
type MockJobHandler struct {
	Result review.Result
	Err    error
	Calls  []review.JobData
}

func (m *MockJobHandler) Handle(ctx context.Context, data review.JobData) (review.Result, error) {
	m.Calls = append(m.Calls, data)
	return m.Result, m.Err
}

// MockCallbacks returns a canned callback result.
type MockCallbacks struct {
	Result review.CallbackResult
	Inputs []review.CallbackInput
}

func (m *MockCallbacks) Handle(ctx context.Context, in review.CallbackInput) review.CallbackResult {
	m.Inputs = append(m.Inputs, in)
	return m.Result
}

// MockBot records Bot API calls.
type MockBot struct {
	Answers   []string
	Alerts    []bool
	Edits     [][2]int64
	AnswerErr error
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	m.Answers = append(m.Answers, callbackQueryID+"|"+text)
	m.Alerts = append(m.Alerts, showAlert)
	return m.AnswerErr
}

func (m *MockBot) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup telegram.InlineKeyboardMarkup) error {
	m.Edits = append(m.Edits, [2]int64{chatID, messageID})
	return nil
}
