package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-credential/credential-service/config"
	credmodel "github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/pkg/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestHealthCheckAPI(t *testing.T) {
	server := testIssuanceServer(t)

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Service is healthy", env.Message)

	var health struct {
		Service string `json:"service"`
		Status  string `json:"status"`
		Worker  struct {
			WorkerID string `json:"workerId"`
		} `json:"worker"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, IssuanceServiceName, health.Service)
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Worker.WorkerID, "worker-")
}

func TestReadinessAPI(t *testing.T) {
	server := testIssuanceServer(t)

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "all services ready", env.Message)
}

func TestWorkerAPI(t *testing.T) {
	server := testVerificationServer(t, "http://localhost:0")

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/worker", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)

	var identity struct {
		WorkerID  string `json:"workerId"`
		Hostname  string `json:"hostname"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &identity))
	assert.Contains(t, identity.WorkerID, "verifier-")
	assert.NotEmpty(t, identity.Hostname)
	assert.True(t, credmodel.IsValidTimestamp(identity.Timestamp))
}

func TestCrossServiceVerification(t *testing.T) {
	issuanceServer := testIssuanceServer(t)
	issuanceHTTP := httptest.NewServer(issuanceServer.Handler)
	t.Cleanup(issuanceHTTP.Close)

	verificationServer := testVerificationServer(t, issuanceHTTP.URL)

	submitted := credmodel.Credential{
		ID:             "cred-e2e",
		HolderName:     "Ada Lovelace",
		CredentialType: "degree",
		IssueDate:      "2024-01-15T10:30:00.000Z",
		IssuerName:     "University of Example",
		Data:           map[string]any{"degree": "BSc Mathematics"},
	}

	t.Run("verifying before issuance fails", func(tt *testing.T) {
		env := postEnvelope(tt, verificationServer.Handler, "/v1/verify", map[string]any{"credential": submitted})
		assert.False(tt, env.Success)
		assert.Contains(tt, env.Message, "Credential not found in issuance service")
	})

	t.Run("issue then verify round-trips", func(tt *testing.T) {
		issueEnv := postEnvelope(tt, issuanceServer.Handler, "/v1/credentials", submitted)
		require.True(tt, issueEnv.Success)
		var issued credmodel.IssuedCredential
		require.NoError(tt, json.Unmarshal(issueEnv.Data, &issued))

		env := postEnvelope(tt, verificationServer.Handler, "/v1/verify", map[string]any{"credential": submitted})
		assert.True(tt, env.Success)
		assert.Contains(tt, env.Message, "Credential verified successfully by verifier-")
		assert.Contains(tt, env.Message, issued.IssuedBy)

		var result credmodel.VerificationResult
		require.NoError(tt, json.Unmarshal(env.Data, &result))
		assert.True(tt, result.IsValid)
		require.NotNil(tt, result.Credential)
		assert.Equal(tt, issued.IssuedBy, result.Credential.IssuedBy)
	})

	t.Run("tampered copy is rejected", func(tt *testing.T) {
		tampered := submitted
		tampered.HolderName = "Someone Else"
		env := postEnvelope(tt, verificationServer.Handler, "/v1/verify", tampered)
		assert.False(tt, env.Success)
		assert.Contains(tt, env.Message, "Credential data mismatch")

		var result credmodel.VerificationResult
		require.NoError(tt, json.Unmarshal(env.Data, &result))
		require.NotNil(tt, result.Credential)
		assert.Equal(tt, submitted.HolderName, result.Credential.HolderName)
	})

	t.Run("history has one row per attempt, newest first", func(tt *testing.T) {
		w := httptest.NewRecorder()
		verificationServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/history?credentialId=cred-e2e", nil))
		require.Equal(tt, http.StatusOK, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		var history []credmodel.VerificationResult
		require.NoError(tt, json.Unmarshal(env.Data, &history))
		require.Len(tt, history, 3)
		assert.False(tt, history[0].IsValid)
		assert.True(tt, history[1].IsValid)
		assert.False(tt, history[2].IsValid)
	})
}

func TestVerificationWithUnreachableIssuanceService(t *testing.T) {
	// a server that is immediately closed leaves a port nothing listens on
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	verificationServer := testVerificationServer(t, deadURL)

	env := postEnvelope(t, verificationServer.Handler, "/v1/verify", credmodel.Credential{
		ID:             "c1",
		HolderName:     "Ada Lovelace",
		CredentialType: "degree",
		IssueDate:      "2024-01-15T10:30:00.000Z",
		IssuerName:     "University of Example",
		Data:           map[string]any{"degree": "BSc Mathematics"},
	})
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "Verification error by verifier-")
}

func testIssuanceServer(t *testing.T) *CredentialServer {
	t.Helper()
	shutdown := make(chan os.Signal, 1)
	server, err := NewIssuanceServer(shutdown, testServiceConfig(""))
	require.NoError(t, err)
	require.NotEmpty(t, server)
	return server
}

func testVerificationServer(t *testing.T, issuanceURL string) *CredentialServer {
	t.Helper()
	shutdown := make(chan os.Signal, 1)
	server, err := NewVerificationServer(shutdown, testServiceConfig(issuanceURL))
	require.NoError(t, err)
	require.NotEmpty(t, server)
	return server
}

func testServiceConfig(issuanceURL string) config.ServiceConfig {
	return config.ServiceConfig{
		Server: config.ServerConfig{
			Environment:  config.EnvironmentTest,
			APIHost:      "0.0.0.0:0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Services: config.ServicesConfig{
			StorageProvider: string(storage.Memory),
			IssuanceConfig: config.IssuanceServiceConfig{
				BaseServiceConfig: &config.BaseServiceConfig{Name: "issuance"},
			},
			VerificationConfig: config.VerificationServiceConfig{
				BaseServiceConfig:  &config.BaseServiceConfig{Name: "verification"},
				IssuanceServiceURL: issuanceURL,
				LookupTimeout:      2 * time.Second,
			},
		},
	}
}

func postEnvelope(t *testing.T, handler http.Handler, target string, body any) envelope {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
