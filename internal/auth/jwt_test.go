package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangavault/pkg/models"
)

var testSecret = []byte("test-secret")

func TestSignAndParse(t *testing.T) {
	token, err := SignJWT(testSecret, "u1", "alice", models.RoleUploader, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUploader, claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := SignJWT(testSecret, "u1", "alice", models.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := SignJWT(testSecret, "u1", "alice", models.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseJWT(testSecret, "not.a.token")
	assert.Error(t, err)
}

func authedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	final := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    c.GetString(CtxRoleKey),
		})
	}
	r.GET("/", append(handlers, final)...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJWT(t *testing.T) {
	r := authedRouter(RequireJWT(testSecret))

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "bogus").Code)

	token, err := SignJWT(testSecret, "u1", "alice", models.RoleUser, time.Hour)
	require.NoError(t, err)
	w := doGet(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"u1"`)
}

func TestOptionalJWT(t *testing.T) {
	r := authedRouter(OptionalJWT(testSecret))

	// Anonymous passes with no identity attached.
	w := doGet(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)

	// An invalid token degrades to anonymous rather than failing.
	w = doGet(r, "bogus")
	assert.Equal(t, http.StatusOK, w.Code)

	token, err := SignJWT(testSecret, "u2", "bob", models.RoleUser, time.Hour)
	require.NoError(t, err)
	w = doGet(r, token)
	assert.Contains(t, w.Body.String(), `"u2"`)
}

func TestRequireRole(t *testing.T) {
	r := authedRouter(RequireJWT(testSecret), RequireRole(models.RoleUploader, models.RoleAdmin))

	user, err := SignJWT(testSecret, "u1", "alice", models.RoleUser, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, doGet(r, user).Code)

	uploader, err := SignJWT(testSecret, "u2", "bob", models.RoleUploader, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doGet(r, uploader).Code)

	admin, err := SignJWT(testSecret, "u3", "root", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doGet(r, admin).Code)
}
