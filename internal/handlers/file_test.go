package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/dto"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/models"
)

// sendMultipart posts form fields and an optional file part.
func (env handlerTestEnv) sendMultipart(t *testing.T, method, path string, fields map[string]string, content []byte, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		part, err := mw.CreateFormFile(constants.UploadFormField, "notes.txt")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeFile(t *testing.T, w *httptest.ResponseRecorder) dto.FileDTO {
	t.Helper()
	var file dto.FileDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &file), w.Body.String())
	return file
}

func TestFileHandler_UploadAndDownload(t *testing.T) {
	env := setupHandlerTestEnv(t, RouteOptions{})
	user, userCookies := env.loginAs(t, "user@example.com", models.RoleUser)
	_, otherCookies := env.loginAs(t, "other@example.com", models.RoleUser)
	_, managerCookies := env.loginAs(t, "manager@example.com", models.RoleManager)

	w := env.sendMultipart(t, http.MethodPost, "/files", map[string]string{
		"description":     "Meeting notes",
		"encryptionLevel": "high",
		"password":        "open-sesame",
	}, []byte("hello world"), userCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assertNoSecrets(t, w.Body.Bytes())
	assert.NotContains(t, w.Body.String(), "open-sesame")

	file := decodeFile(t, w)
	assert.Equal(t, "notes.txt", file.Name)
	assert.Equal(t, int64(len("hello world")), file.Size)
	assert.Equal(t, user.ID, file.UploadedBy)
	assert.Equal(t, models.ReviewStatusPendingReview, file.ReviewStatus)
	assert.Equal(t, "AES-256-GCM", file.EncryptionDetails.Algorithm)
	assert.True(t, strings.HasPrefix(file.EncryptionDetails.KeyIdentifier, "key-"))
	assert.True(t, file.EncryptionDetails.PasswordProtected)

	download := func(cookies []*http.Cookie, password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/files/"+file.ID+"/download", nil)
		if password != "" {
			req.Header.Set(FilePasswordHeader, password)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	w = download(userCookies, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = download(userCookies, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = download(otherCookies, "open-sesame")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = download(userCookies, "open-sesame")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")

	w = download(managerCookies, "open-sesame")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/files", nil, userCookies)
	require.Equal(t, http.StatusOK, w.Code)
	assertNoSecrets(t, w.Body.Bytes())
	var list dto.FileListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.TotalCount)

	w = env.do(t, http.MethodGet, "/files", nil, otherCookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(0), list.TotalCount)
}

func TestFileHandler_UploadRejections(t *testing.T) {
	env := setupHandlerTestEnv(t, RouteOptions{})
	_, cookies := env.loginAs(t, "user@example.com", models.RoleUser)

	w := env.sendMultipart(t, http.MethodPost, "/files", map[string]string{"name": "x"}, nil, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidInput, decodeAPIError(t, w).Code)

	w = env.sendMultipart(t, http.MethodPost, "/files", nil, []byte{}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.sendMultipart(t, http.MethodPost, "/files", map[string]string{"encryptionLevel": "military"}, []byte("data"), cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.sendMultipart(t, http.MethodPost, "/files", map[string]string{"name": strings.Repeat("n", constants.MaxTitleLength+1)}, []byte("data"), cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidInput, decodeAPIError(t, w).Code)

	w = env.sendMultipart(t, http.MethodPost, "/files", nil, bytes.Repeat([]byte("a"), testMaxUploadBytes+1), cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidInput, decodeAPIError(t, w).Code)
}

func TestFileHandler_ReviewAndReupload(t *testing.T) {
	env := setupHandlerTestEnv(t, RouteOptions{})
	_, userCookies := env.loginAs(t, "user@example.com", models.RoleUser)
	manager, managerCookies := env.loginAs(t, "manager@example.com", models.RoleManager)
	_, adminCookies := env.loginAs(t, "admin@example.com", models.RoleAdmin)

	w := env.sendMultipart(t, http.MethodPost, "/files", nil, []byte("v1"), userCookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	file := decodeFile(t, w)

	w = env.do(t, http.MethodGet, "/files/review-queue", nil, managerCookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), file.ID)

	// Re-upload only applies to reverted files.
	w = env.sendMultipart(t, http.MethodPut, "/files/"+file.ID, nil, []byte("v2"), userCookies)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidTransition, decodeAPIError(t, w).Code)

	w = env.do(t, http.MethodPut, "/files/"+file.ID+"/review", map[string]any{"reviewStatus": "reverted"}, managerCookies)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPut, "/files/"+file.ID+"/review", map[string]any{
		"reviewStatus":  "reverted",
		"reviewedBy":    manager.ID,
		"reviewComment": "Wrong version",
	}, managerCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	file = decodeFile(t, w)
	assert.Equal(t, models.ReviewStatusReverted, file.ReviewStatus)
	assert.Equal(t, "Wrong version", file.ReviewComment)

	w = env.sendMultipart(t, http.MethodPut, "/files/"+file.ID, map[string]string{"description": "fixed"}, []byte("v2-final"), managerCookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.sendMultipart(t, http.MethodPut, "/files/"+file.ID, map[string]string{"description": "fixed"}, []byte("v2-final"), userCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	file = decodeFile(t, w)
	assert.Equal(t, models.ReviewStatusPendingReview, file.ReviewStatus)
	assert.Empty(t, file.ReviewComment)
	assert.Equal(t, "fixed", file.Description)
	assert.Equal(t, int64(len("v2-final")), file.Size)

	w = env.do(t, http.MethodPut, "/files/"+file.ID+"/review", map[string]any{"reviewStatus": "approved", "version": file.Version}, adminCookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ReviewStatusApproved, decodeFile(t, w).ReviewStatus)

	w = env.do(t, http.MethodGet, "/files/"+file.ID+"/download", nil, userCookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v2-final", w.Body.String())
}

func TestFileHandler_Delete(t *testing.T) {
	env := setupHandlerTestEnv(t, RouteOptions{})
	_, userCookies := env.loginAs(t, "user@example.com", models.RoleUser)
	_, managerCookies := env.loginAs(t, "manager@example.com", models.RoleManager)
	_, adminCookies := env.loginAs(t, "admin@example.com", models.RoleAdmin)

	upload := func() dto.FileDTO {
		w := env.sendMultipart(t, http.MethodPost, "/files", nil, []byte("bytes"), userCookies)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decodeFile(t, w)
	}

	first := upload()
	w := env.do(t, http.MethodDelete, "/files/"+first.ID, nil, managerCookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodDelete, "/files/"+first.ID, nil, userCookies)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/files/"+first.ID, nil, userCookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	second := upload()
	w = env.do(t, http.MethodDelete, "/files/"+second.ID, nil, adminCookies)
	assert.Equal(t, http.StatusOK, w.Code)
}
