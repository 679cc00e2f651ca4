package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-credential/credential-service/config"
	credmodel "github.com/kube-credential/credential-service/internal/credential"
	"github.com/kube-credential/credential-service/internal/worker"
	"github.com/kube-credential/credential-service/pkg/service/credential"
	"github.com/kube-credential/credential-service/pkg/storage"
)

// envelope mirrors the wire format with the payload left raw for per-test
// decoding.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func TestCredentialRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Nil service", func(tt *testing.T) {
		credRouter, err := NewCredentialRouter(nil)
		assert.Error(tt, err)
		assert.Empty(tt, credRouter)
	})

	t.Run("Issue credential", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", testCredential("c1")))
		assert.Equal(tt, http.StatusCreated, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(tt, env.Success)
		assert.Contains(tt, env.Message, "credential issued by worker-")

		var issued credmodel.IssuedCredential
		require.NoError(tt, json.Unmarshal(env.Data, &issued))
		assert.Equal(tt, "c1", issued.ID)
		assert.Contains(tt, issued.IssuedBy, "worker-")
		assert.True(tt, credmodel.IsValidTimestamp(issued.Timestamp))
	})

	t.Run("Issuing twice returns the original record", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", testCredential("c1")))
		require.Equal(tt, http.StatusCreated, w.Code)
		var first envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &first))

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", testCredential("c1")))
		assert.Equal(tt, http.StatusOK, w.Code)

		var second envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &second))
		assert.True(tt, second.Success)
		assert.Equal(tt, "Credential already issued", second.Message)
		assert.JSONEq(tt, string(first.Data), string(second.Data))
	})

	t.Run("Invalid credential is a 400 with every failed check", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", map[string]any{"id": "c1"}))
		assert.Equal(tt, http.StatusBadRequest, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		assert.False(tt, env.Success)
		assert.Equal(tt, "Invalid credential data", env.Message)
		assert.Contains(tt, env.Error, "Holder name is required and must be a string")
		assert.Contains(tt, env.Error, "Credential data is required and must be an object")
	})

	t.Run("Array credential data is a 400", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		body := map[string]any{
			"id":             "c1",
			"holderName":     "Ada Lovelace",
			"credentialType": "degree",
			"issueDate":      "2024-01-15T10:30:00.000Z",
			"issuerName":     "University of Example",
			"data":           []any{"BSc Mathematics"},
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", body))
		assert.Equal(tt, http.StatusBadRequest, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		assert.False(tt, env.Success)
		assert.Equal(tt, "Invalid credential data", env.Message)
	})

	t.Run("Get credential", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", testCredential("c1")))
		require.Equal(tt, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/credentials/c1", nil))
		assert.Equal(tt, http.StatusOK, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(tt, env.Success)
		assert.Equal(tt, "Credential retrieved successfully", env.Message)
	})

	t.Run("Get unknown credential is a 404", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/credentials/nope", nil))
		assert.Equal(tt, http.StatusNotFound, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		assert.False(tt, env.Success)
		assert.Equal(tt, "Credential not found", env.Message)
		assert.Contains(tt, env.Error, "No credential found with ID: nope")
	})

	t.Run("List credentials most-recent-first", func(tt *testing.T) {
		engine := testIssuanceEngine(tt)

		for _, id := range []string{"c1", "c2"} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, postJSON(tt, "/v1/credentials", testCredential(id)))
			require.Equal(tt, http.StatusCreated, w.Code)
		}

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/credentials", nil))
		assert.Equal(tt, http.StatusOK, w.Code)

		var env envelope
		require.NoError(tt, json.Unmarshal(w.Body.Bytes(), &env))
		var creds []credmodel.IssuedCredential
		require.NoError(tt, json.Unmarshal(env.Data, &creds))
		require.Len(tt, creds, 2)
		assert.Equal(tt, "c2", creds[0].ID)
		assert.Equal(tt, "c1", creds[1].ID)
	})
}

func testIssuanceEngine(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := storage.NewStorage(storage.Memory)
	require.NoError(t, err)

	serviceConfig := config.IssuanceServiceConfig{BaseServiceConfig: &config.BaseServiceConfig{Name: "issuance"}}
	credService, err := credential.NewCredentialService(serviceConfig, db, worker.NewIdentity(worker.RoleIssuer))
	require.NoError(t, err)

	credRouter, err := NewCredentialRouter(credService)
	require.NoError(t, err)

	engine := gin.New()
	v1 := engine.Group("/v1")
	v1.POST("/credentials", credRouter.IssueCredential)
	v1.GET("/credentials", credRouter.ListCredentials)
	v1.GET("/credentials/:id", credRouter.GetCredential)
	return engine
}

func postJSON(t *testing.T, target string, body any) *http.Request {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func testCredential(id string) credmodel.Credential {
	return credmodel.Credential{
		ID:             id,
		HolderName:     "Ada Lovelace",
		CredentialType: "degree",
		IssueDate:      "2024-01-15T10:30:00.000Z",
		IssuerName:     "University of Example",
		Data:           map[string]any{"degree": "BSc Mathematics"},
	}
}
