package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosai/backend/internal/api/handlers"
	"github.com/diagnosai/backend/internal/domain/entities"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

type errorBody struct {
	Error   string                 `json:"error"`
	Details []apperrors.FieldError `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

type stubDiagnosisService struct {
	input *entities.DiagnosisInput
	text  string
	err   error
}

func (s *stubDiagnosisService) Diagnose(ctx context.Context, input *entities.DiagnosisInput) (string, error) {
	s.input = input
	return s.text, s.err
}

func TestDiagnosisHandler_Diagnose(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubDiagnosisService{text: "Likely a cold."}
		handler := handlers.NewDiagnosisHandler(svc)

		body := `{"symptoms":"fever","images":["a.png"],"health_records":{"age":30}}`
		req := httptest.NewRequest(http.MethodPost, "/api/diagnose", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.Diagnose(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"diagnosis":"Likely a cold."}`, w.Body.String())
		require.NotNil(t, svc.input)
		assert.Equal(t, "fever", svc.input.Symptoms)
		assert.JSONEq(t, `["a.png"]`, string(svc.input.Images))
		assert.JSONEq(t, `{"age":30}`, string(svc.input.HealthRecords))
	})

	t.Run("missing symptoms is a 422 with field detail", func(t *testing.T) {
		handler := handlers.NewDiagnosisHandler(&stubDiagnosisService{})
		req := httptest.NewRequest(http.MethodPost, "/api/diagnose", strings.NewReader(`{"images":[]}`))
		w := httptest.NewRecorder()
		handler.Diagnose(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, []apperrors.FieldError{{Field: "symptoms", Rule: "required"}}, body.Details)
	})

	t.Run("malformed json", func(t *testing.T) {
		handler := handlers.NewDiagnosisHandler(&stubDiagnosisService{})
		req := httptest.NewRequest(http.MethodPost, "/api/diagnose", strings.NewReader(`{"symptoms":`))
		w := httptest.NewRecorder()
		handler.Diagnose(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, []apperrors.FieldError{{Field: "body", Rule: "json"}}, body.Details)
	})

	t.Run("model failure is a 500", func(t *testing.T) {
		svc := &stubDiagnosisService{err: apperrors.NewExternalError("quota exceeded", errors.New("429"))}
		handler := handlers.NewDiagnosisHandler(svc)
		req := httptest.NewRequest(http.MethodPost, "/api/diagnose", strings.NewReader(`{"symptoms":"fever"}`))
		w := httptest.NewRecorder()
		handler.Diagnose(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Diagnosis failed: quota exceeded", decodeError(t, w).Error)
	})
}

type stubHealthInfoService struct {
	query string
	info  *entities.HealthInfo
	err   error
}

func (s *stubHealthInfoService) Lookup(ctx context.Context, query string) (*entities.HealthInfo, error) {
	s.query = query
	return s.info, s.err
}

func TestHealthInfoHandler_GetHealthInfo(t *testing.T) {
	newMux := func(h *handlers.HealthInfoHandler) *http.ServeMux {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/healthdata/health-info/{query}", h.GetHealthInfo)
		return mux
	}

	t.Run("success", func(t *testing.T) {
		svc := &stubHealthInfoService{info: &entities.HealthInfo{
			Source: entities.HealthInfoSourceCache,
			Data:   json.RawMessage(`{"cases":1}`),
		}}
		req := httptest.NewRequest(http.MethodGet, "/api/healthdata/health-info/seasonal%20flu", nil)
		w := httptest.NewRecorder()
		newMux(handlers.NewHealthInfoHandler(svc)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "seasonal flu", svc.query)
		assert.JSONEq(t, `{"source":"cache","data":{"cases":1}}`, w.Body.String())
	})

	t.Run("upstream failure is a 500 with the message", func(t *testing.T) {
		svc := &stubHealthInfoService{err: apperrors.NewExternalError("health data request returned status 503", errors.New("503"))}
		req := httptest.NewRequest(http.MethodGet, "/api/healthdata/health-info/flu", nil)
		w := httptest.NewRecorder()
		newMux(handlers.NewHealthInfoHandler(svc)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decodeError(t, w).Error, "status 503")
	})
}

type stubReferralService struct {
	req    *entities.ReferralRequest
	result *entities.ReferralResult
	err    error
}

func (s *stubReferralService) FindReferrals(ctx context.Context, req *entities.ReferralRequest) (*entities.ReferralResult, error) {
	s.req = req
	return s.result, s.err
}

func TestReferralHandler_FindReferrals(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		result := entities.NewReferralResult()
		result.Recommended = []entities.Facility{{ID: "1", Name: "City Hospital", Type: entities.FacilityTypeHospital, Address: entities.AddressNotAvailable}}
		svc := &stubReferralService{result: result}

		body := `{"location":{"lat":40.7,"lng":-74.0},"diagnosis":"flu","preferences":{"urgency":"normal","maxDistance":5}}`
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(svc).FindReferrals(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.req)
		assert.Equal(t, 5.0, svc.req.Preferences.MaxDistance)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
		assert.JSONEq(t, `[]`, string(decoded["urgent"]))
		assert.JSONEq(t, `null`, string(decoded["emergency_note"]))
		assert.Contains(t, string(decoded["recommended"]), `"City Hospital"`)
	})

	t.Run("validation details", func(t *testing.T) {
		body := `{"location":{"lat":123,"lng":0},"preferences":{"maxDistance":-1}}`
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(&stubReferralService{}).FindReferrals(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		details := decodeError(t, w).Details
		assert.Contains(t, details, apperrors.FieldError{Field: "location.lat", Rule: "lte"})
		assert.Contains(t, details, apperrors.FieldError{Field: "diagnosis", Rule: "required"})
		assert.Contains(t, details, apperrors.FieldError{Field: "preferences.maxDistance", Rule: "gte"})
	})

	t.Run("missing location", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(`{"diagnosis":"flu"}`))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(&stubReferralService{}).FindReferrals(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeError(t, w).Details, apperrors.FieldError{Field: "location", Rule: "required"})
	})

	t.Run("partial location", func(t *testing.T) {
		svc := &stubReferralService{}
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(`{"location":{"lat":1},"diagnosis":"flu"}`))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(svc).FindReferrals(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []apperrors.FieldError{{Field: "location.lng", Rule: "required"}}, decodeError(t, w).Details)
		assert.Nil(t, svc.req)
	})

	t.Run("zero coordinates are accepted", func(t *testing.T) {
		svc := &stubReferralService{result: entities.NewReferralResult()}
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(`{"location":{"lat":0,"lng":0},"diagnosis":"flu"}`))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(svc).FindReferrals(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.req)
		assert.Equal(t, 0.0, *svc.req.Location.Lng)
	})

	t.Run("wrong type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(`{"location":{"lat":"north"},"diagnosis":"flu"}`))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(&stubReferralService{}).FindReferrals(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []apperrors.FieldError{{Field: "location.lat", Rule: "type"}}, decodeError(t, w).Details)
	})

	t.Run("upstream failure", func(t *testing.T) {
		svc := &stubReferralService{err: apperrors.NewExternalError("failed to fetch nearby facilities", errors.New("timeout"))}
		req := httptest.NewRequest(http.MethodPost, "/api/referral/find", strings.NewReader(`{"location":{"lat":1,"lng":2},"diagnosis":"flu"}`))
		w := httptest.NewRecorder()
		handlers.NewReferralHandler(svc).FindReferrals(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type stubUserService struct {
	registered *entities.User
	login      *entities.LoginResult
	err        error
	fullName   *string
	called     bool
}

func (s *stubUserService) Register(ctx context.Context, email, password string, fullName *string) (*entities.User, error) {
	s.called = true
	s.fullName = fullName
	if s.err != nil {
		return nil, s.err
	}
	return &entities.User{ID: "u-1", Email: email, HashedPassword: "secret-hash", FullName: fullName, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (*entities.LoginResult, error) {
	return s.login, s.err
}

func TestUserHandler_Register(t *testing.T) {
	t.Run("created without password", func(t *testing.T) {
		svc := &stubUserService{}
		req := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"ada@example.com","password":"pw","full_name":"Ada"}`))
		w := httptest.NewRecorder()
		handlers.NewUserHandler(svc).Register(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "secret-hash")
		assert.NotContains(t, w.Body.String(), "password")

		var user map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.Equal(t, "u-1", user["id"])
		assert.Equal(t, "Ada", user["full_name"])
	})

	t.Run("duplicate email is a 400", func(t *testing.T) {
		svc := &stubUserService{err: apperrors.NewConflictError("Email already registered")}
		req := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"ada@example.com","password":"pw"}`))
		w := httptest.NewRecorder()
		handlers.NewUserHandler(svc).Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email already registered", decodeError(t, w).Error)
	})

	t.Run("invalid email", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users/register",
			strings.NewReader(`{"email":"not-an-email","password":"pw"}`))
		w := httptest.NewRecorder()
		handlers.NewUserHandler(&stubUserService{}).Register(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []apperrors.FieldError{{Field: "email", Rule: "email"}}, decodeError(t, w).Details)
	})

	t.Run("password over 72 characters", func(t *testing.T) {
		svc := &stubUserService{}
		body := `{"email":"ada@example.com","password":"` + strings.Repeat("x", 73) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.NewUserHandler(svc).Register(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []apperrors.FieldError{{Field: "password", Rule: "max"}}, decodeError(t, w).Details)
		assert.False(t, svc.called)
	})
}

func TestUserHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubUserService{login: &entities.LoginResult{Message: "Login successful", Token: "tkn"}}
		req := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"ada@example.com","password":"pw"}`))
		w := httptest.NewRecorder()
		handlers.NewUserHandler(svc).Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Login successful","token":"tkn"}`, w.Body.String())
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := &stubUserService{err: apperrors.NewUnauthorizedError("Invalid email or password")}
		req := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"ada@example.com","password":"nope"}`))
		w := httptest.NewRecorder()
		handlers.NewUserHandler(svc).Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password", decodeError(t, w).Error)
	})
}

type stubChatService struct {
	reply *entities.ChatReply
	err   error
}

func (s *stubChatService) Reply(ctx context.Context, message string) (*entities.ChatReply, error) {
	return s.reply, s.err
}

func TestChatHandler_Chat(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubChatService{reply: &entities.ChatReply{
			Response:  "Rest.",
			Sources:   []string{"WHO"},
			Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}}
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"flu?"}`))
		w := httptest.NewRecorder()
		handlers.NewChatHandler(svc).Chat(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"response":"Rest.","sources":["WHO"],"timestamp":"2024-05-01T12:00:00Z"}`, w.Body.String())
	})

	t.Run("model failure hides the cause", func(t *testing.T) {
		svc := &stubChatService{err: apperrors.NewExternalError("Failed to process your request", errors.New("api key leaked?"))}
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"flu?"}`))
		w := httptest.NewRecorder()
		handlers.NewChatHandler(svc).Chat(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to process your request", decodeError(t, w).Error)
	})

	t.Run("empty message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":""}`))
		w := httptest.NewRecorder()
		handlers.NewChatHandler(&stubChatService{}).Chat(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSystemHandler(t *testing.T) {
	handler := handlers.NewSystemHandler("diagnosai-api", "1.0.0")

	w := httptest.NewRecorder()
	handler.Root(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to DiagnosAI Backend"}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"diagnosai-api","version":"1.0.0"}`, w.Body.String())
}
