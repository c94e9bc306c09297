package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/flybeeper/radarsim/pkg/utils"
)

func TestValidator(t *testing.T) {
	v := NewValidator("s3cret")
	assert.True(t, v.Enabled())
	assert.NoError(t, v.ValidateToken("s3cret"))
	assert.ErrorIs(t, v.ValidateToken(""), ErrMissingToken)
	assert.ErrorIs(t, v.ValidateToken("s3cret "), ErrInvalidToken)

	open := NewValidator("")
	assert.False(t, open.Enabled())
	assert.NoError(t, open.ValidateToken(""))
}

func setupRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := NewMiddleware(NewValidator(token), utils.Discard())
	router.POST("/cmd", mw.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": IsAuthenticated(c)})
	})
	return router
}

func TestMiddleware_Authenticate(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{name: "disabled", token: "", wantStatus: http.StatusOK, wantBody: `"authenticated":false`},
		{name: "missing token", token: "abc", wantStatus: http.StatusUnauthorized, wantBody: "MISSING_TOKEN"},
		{name: "wrong token", token: "abc", header: "Bearer xyz", wantStatus: http.StatusUnauthorized, wantBody: "INVALID_TOKEN"},
		{name: "wrong scheme", token: "abc", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantBody: "MISSING_TOKEN"},
		{name: "bearer header", token: "abc", header: "Bearer abc", wantStatus: http.StatusOK, wantBody: `"authenticated":true`},
		{name: "lowercase scheme", token: "abc", header: "bearer abc", wantStatus: http.StatusOK},
		{name: "query parameter", token: "abc", query: "?token=abc", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(tt.token)
			req := httptest.NewRequest(http.MethodPost, "/cmd"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}
