package server

import (
	"net/http"
	"testing"

	"captionboard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileLifecycle(t *testing.T) {
	ts := newTestServer(t)
	userID := uuid.New()

	status, body := ts.do(t, http.MethodGet, "/api/me/profile", nil, &userID)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, decode[errorBody](t, body).Code)

	status, body = ts.do(t, http.MethodPut, "/api/me/profile", map[string]interface{}{
		"full_name": "Asha Menon", "department": "ec", "year": 3, "student_id": "EC21-007",
	}, &userID)
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decode[models.Profile](t, body)
	assert.Equal(t, userID, created.ID)
	assert.Equal(t, models.DepartmentEC, created.Department)
	assert.Equal(t, 3, created.Year)
	assert.Equal(t, userID.String()[:8]+"@example.edu", created.Email)

	status, body = ts.do(t, http.MethodPut, "/api/me/profile", map[string]interface{}{
		"full_name": "Asha M", "department": "EC", "year": 4,
	}, &userID)
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decode[models.Profile](t, body)
	assert.Equal(t, "Asha M", updated.FullName)
	assert.Equal(t, 4, updated.Year)
	assert.Empty(t, updated.StudentID)

	status, body = ts.do(t, http.MethodGet, "/api/me/profile", nil, &userID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Asha M", decode[models.Profile](t, body).FullName)
}

func TestUpdateMyProfile_Validation(t *testing.T) {
	ts := newTestServer(t)
	userID := uuid.New()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"department": "IT", "year": 1}},
		{"bad department", map[string]interface{}{"full_name": "A", "department": "XX"}},
		{"bad year", map[string]interface{}{"full_name": "A", "department": "IT", "year": 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(t, http.MethodPut, "/api/me/profile", tt.body, &userID)
			assert.Equal(t, http.StatusBadRequest, status, string(body))
			assert.Equal(t, models.CodeValidation, decode[errorBody](t, body).Code)
		})
	}

	status, _ := ts.do(t, http.MethodPut, "/api/me/profile", map[string]interface{}{"full_name": "A"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeleteMe_KeepsCaptionsDropsLikes(t *testing.T) {
	ts := newTestServer(t)
	author := uuid.New()
	fan := uuid.New()

	caption := ts.createCaption(t, author, "survives its author")
	status, _ := ts.do(t, http.MethodPost, "/api/captions/"+caption.ID.String()+"/like", nil, &fan)
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/api/captions/"+caption.ID.String()+"/like", nil, &author)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/me", nil, &author)
	require.Equal(t, http.StatusNoContent, status)

	status, body := ts.do(t, http.MethodGet, "/api/captions/"+caption.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[models.Caption](t, body)
	assert.Nil(t, got.UserID)
	assert.Equal(t, int64(1), got.LikeCount)

	status, _ = ts.do(t, http.MethodGet, "/api/me/profile", nil, &author)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ts.do(t, http.MethodDelete, "/api/me", nil, &author)
	assert.Equal(t, http.StatusNotFound, status, string(body))
}
