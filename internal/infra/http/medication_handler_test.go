package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSON(t *testing.T, body string, out interface{}) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPut, "/medications/x", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(out)
}

func TestUpdateRequestAcceptsPartialBody(t *testing.T) {
	var req updateMedicationRequest
	require.NoError(t, bindJSON(t, `{"name":"Evening meds"}`, &req))
	assert.Equal(t, "Evening meds", req.Name)
	assert.Nil(t, req.DrugInfo)

	// Drug-info-only updates bind too; the service decides what a
	// partial update means.
	req = updateMedicationRequest{}
	require.NoError(t, bindJSON(t, `{"drugInfo":[{"drugName":"Aspirin","dose":"100mg","frequency":"ONCE_DAILY","startDate":"2026-09-01","endDate":"2026-09-10"}]}`, &req))
	assert.Empty(t, req.Name)
	assert.Len(t, req.DrugInfo, 1)
}

func TestCreateRequestRequiresBothFields(t *testing.T) {
	var req medicationRequest
	assert.Error(t, bindJSON(t, `{"name":"Morning meds"}`, &req))
}
