package rbac

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-presence/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	got domain.EnforceRequest
	err error
}

func (m *mockService) Reload() error { return nil }

func (m *mockService) Enforce(req domain.EnforceRequest) (bool, error) {
	m.got = req
	if m.err != nil {
		return false, m.err
	}
	return req.Resource == "attendance" && req.Action == "punch", nil
}

func newEnforceRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/rbac/enforce", func(c *gin.Context) {
		c.Set("company_id", "company-1")
		c.Set("role", "EMPLOYEE")
		c.Next()
	}, NewHandler(svc).Enforce)
	return router
}

func postEnforce(router *gin.Engine, body any) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/rbac/enforce", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Enforce(t *testing.T) {
	svc := &mockService{}
	w := postEnforce(newEnforceRouter(svc), map[string]string{
		"company_id": "company-9",
		"resource":   "attendance",
		"action":     "punch",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Ok   bool                   `json:"ok"`
		Data domain.EnforceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Allowed)

	assert.Equal(t, "company-1", svc.got.CompanyID)
	assert.Equal(t, "EMPLOYEE", svc.got.Role)
}

func TestHandler_EnforceValidation(t *testing.T) {
	w := postEnforce(newEnforceRouter(&mockService{}), map[string]string{"resource": "attendance"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_EnforceError(t *testing.T) {
	w := postEnforce(newEnforceRouter(&mockService{err: errors.New("adapter failed")}), map[string]string{
		"resource": "attendance",
		"action":   "read",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
