package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { OK(c, gin.H{"posts": 2}) })
	r.GET("/conflict", func(c *gin.Context) { Conflict(c, "poll is closed") }, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"late": true})
	})

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/ok", http.StatusOK, `{"success":true,"data":{"posts":2}}`},
		{"/conflict", http.StatusConflict, `{"success":false,"error":"poll is closed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestRawBodyReadsMessage(t *testing.T) {
	var env RawBody
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"message":"token expired"}`), &env))
	assert.Equal(t, "token expired", env.Message)
	require.NotNil(t, env.Success)
	assert.False(t, *env.Success)
}
