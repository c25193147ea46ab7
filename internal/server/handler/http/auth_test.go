package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/face"
	"github.com/finnova/finnova/internal/models"
	"github.com/finnova/finnova/internal/registry"
	handler "github.com/finnova/finnova/internal/server/handler/http"
)

// fakeAccounts implements handler.AccountService with per-call overrides.
type fakeAccounts struct {
	RegisterFunc          func(username, password string, encoding []float64) error
	UpdatePasswordFunc    func(username, newPassword string) error
	AuthMethodsFunc       func(username string) []models.AuthMethod
	ExistsFunc            func(username string) bool
	VerifyPasswordFunc    func(username, password string) bool
	FaceEncodingOfFunc    func(username string) []float64
	EnrolledTemplatesFunc func() ([][]float64, []string)
}

func (f *fakeAccounts) Register(username, password string, encoding []float64) error {
	if f.RegisterFunc == nil {
		return nil
	}
	return f.RegisterFunc(username, password, encoding)
}

func (f *fakeAccounts) UpdatePassword(username, newPassword string) error {
	if f.UpdatePasswordFunc == nil {
		return nil
	}
	return f.UpdatePasswordFunc(username, newPassword)
}

func (f *fakeAccounts) AuthMethods(username string) []models.AuthMethod {
	if f.AuthMethodsFunc == nil {
		return nil
	}
	return f.AuthMethodsFunc(username)
}

func (f *fakeAccounts) Exists(username string) bool {
	if f.ExistsFunc == nil {
		return false
	}
	return f.ExistsFunc(username)
}

func (f *fakeAccounts) VerifyPassword(username, password string) bool {
	if f.VerifyPasswordFunc == nil {
		return false
	}
	return f.VerifyPasswordFunc(username, password)
}

func (f *fakeAccounts) FaceEncodingOf(username string) []float64 {
	if f.FaceEncodingOfFunc == nil {
		return nil
	}
	return f.FaceEncodingOfFunc(username)
}

func (f *fakeAccounts) EnrolledTemplates() ([][]float64, []string) {
	if f.EnrolledTemplatesFunc == nil {
		return nil, nil
	}
	return f.EnrolledTemplatesFunc()
}

func newTestServer(accounts *fakeAccounts) *httptest.Server {
	h := &handler.AuthHandler{
		Accounts: accounts,
		Matcher:  face.NewMatcher(face.DefaultDuplicateTolerance, face.DefaultMatchTolerance),
		Log:      zap.NewNop(),
	}
	return httptest.NewServer(handler.NewRouter(h, zap.NewNop()))
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// encoding returns a 128-dimensional embedding whose first component is v.
func encoding(v float64) []float64 {
	enc := make([]float64, face.EncodingLength)
	enc[0] = v
	return enc
}

func TestRegister_OK(t *testing.T) {
	accounts := &fakeAccounts{
		AuthMethodsFunc: func(username string) []models.AuthMethod {
			return []models.AuthMethod{models.AuthPassword}
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/register", handler.RegisterRequest{
		Username: "alice",
		Password: "longpassword1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "alice", body["user"])
	assert.Equal(t, []any{"password"}, body["methods"])
}

func TestRegister_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty username", registry.ErrEmptyUsername, http.StatusBadRequest},
		{"no auth method", registry.ErrNoAuthMethod, http.StatusBadRequest},
		{"invalid embedding", registry.ErrInvalidEmbedding, http.StatusBadRequest},
		{"duplicate username", registry.ErrDuplicateUsername, http.StatusConflict},
		{"duplicate face", registry.ErrDuplicateFace, http.StatusConflict},
		{"persistence failure", registry.ErrPersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &fakeAccounts{
				RegisterFunc: func(string, string, []float64) error { return tt.err },
			}
			srv := newTestServer(accounts)
			defer srv.Close()

			resp := postJSON(t, srv.URL+"/api/register", handler.RegisterRequest{Username: "alice"})
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRegister_UnsupportedContentType(t *testing.T) {
	srv := newTestServer(&fakeAccounts{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/register", "text/plain", bytes.NewReader([]byte("hi")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestLogin_PasswordOnly(t *testing.T) {
	accounts := &fakeAccounts{
		VerifyPasswordFunc: func(username, password string) bool {
			return username == "alice" && password == "longpassword1"
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login", handler.LoginRequest{
		Username: "alice",
		Password: "longpassword1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "alice", body["user"])
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(&fakeAccounts{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login", handler.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "rejected", body["status"])
	assert.Equal(t, "invalid_credentials", body["reason"])
}

func TestLogin_WithFaceSecondFactor(t *testing.T) {
	stored := encoding(1.0)
	accounts := &fakeAccounts{
		VerifyPasswordFunc: func(string, string) bool { return true },
		FaceEncodingOfFunc: func(string) []float64 { return stored },
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login", handler.LoginRequest{
		Username:     "alice",
		Password:     "longpassword1",
		FaceEncoding: encoding(1.2),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestLogin_FaceSecondFactorMismatch(t *testing.T) {
	accounts := &fakeAccounts{
		VerifyPasswordFunc: func(string, string) bool { return true },
		FaceEncodingOfFunc: func(string) []float64 { return encoding(1.0) },
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login", handler.LoginRequest{
		Username:     "alice",
		Password:     "longpassword1",
		FaceEncoding: encoding(2.0),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "face_mismatch", body["reason"])
}

func TestLoginFace_ResolvesUsername(t *testing.T) {
	accounts := &fakeAccounts{
		ExistsFunc: func(string) bool { return true },
		EnrolledTemplatesFunc: func() ([][]float64, []string) {
			return [][]float64{encoding(1.0), encoding(2.0)}, []string{"alice", "bob"}
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login/face", handler.FaceLoginRequest{
		FaceEncoding: encoding(2.1),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "bob", body["user"])
}

func TestLoginFace_OrphanedTemplate(t *testing.T) {
	accounts := &fakeAccounts{
		ExistsFunc: func(string) bool { return false },
		EnrolledTemplatesFunc: func() ([][]float64, []string) {
			return [][]float64{encoding(1.0)}, []string{"ghost"}
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login/face", handler.FaceLoginRequest{
		FaceEncoding: encoding(1.0),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "data_inconsistency", body["reason"])
}

func TestLoginFace_MalformedEncodingLength(t *testing.T) {
	accounts := &fakeAccounts{
		ExistsFunc: func(string) bool { return true },
		EnrolledTemplatesFunc: func() ([][]float64, []string) {
			return [][]float64{encoding(1.0)}, []string{"alice"}
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	for _, enc := range [][]float64{{}, make([]float64, face.EncodingLength-1)} {
		resp := postJSON(t, srv.URL+"/api/login/face", handler.FaceLoginRequest{
			FaceEncoding: enc,
		})
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestLogin_MalformedSecondFactorLength(t *testing.T) {
	accounts := &fakeAccounts{
		VerifyPasswordFunc: func(string, string) bool { return true },
		FaceEncodingOfFunc: func(string) []float64 { return encoding(1.0) },
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login", handler.LoginRequest{
		Username:     "alice",
		Password:     "longpassword1",
		FaceEncoding: make([]float64, face.EncodingLength-1),
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// An explicit empty array is a malformed probe, not "no second factor".
	resp = postJSON(t, srv.URL+"/api/login", map[string]any{
		"username":      "alice",
		"password":      "longpassword1",
		"face_encoding": []float64{},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginFace_MissingEncoding(t *testing.T) {
	srv := newTestServer(&fakeAccounts{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/login/face", map[string]any{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangePassword_OK(t *testing.T) {
	var got string
	accounts := &fakeAccounts{
		VerifyPasswordFunc: func(username, password string) bool { return password == "old" },
		UpdatePasswordFunc: func(username, newPassword string) error {
			got = newPassword
			return nil
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/password", handler.ChangePasswordRequest{
		Username:    "alice",
		OldPassword: "old",
		NewPassword: "newpassword99",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "newpassword99", got)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	srv := newTestServer(&fakeAccounts{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/password", handler.ChangePasswordRequest{
		Username:    "alice",
		OldPassword: "wrong",
		NewPassword: "newpassword99",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "invalid_credentials", body["reason"])
}

func TestChangePassword_UnknownUser(t *testing.T) {
	accounts := &fakeAccounts{
		UpdatePasswordFunc: func(string, string) error { return registry.ErrUnknownUser },
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/password", handler.ChangePasswordRequest{
		Username:    "ghost",
		NewPassword: "newpassword99",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethods(t *testing.T) {
	accounts := &fakeAccounts{
		AuthMethodsFunc: func(username string) []models.AuthMethod {
			if username != "alice" {
				return nil
			}
			return []models.AuthMethod{models.AuthPassword, models.AuthFace}
		},
	}
	srv := newTestServer(accounts)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/users/alice/methods")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "alice", body["user"])
	assert.Equal(t, []any{"password", "face"}, body["methods"])

	resp, err = http.Get(srv.URL + "/api/users/ghost/methods")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
