package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret, role string, expiry time.Duration) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
		Role:  role,
		Name:  "Asha",
		RegNo: "21BCE100",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", RequireCandidateJWT(testSecret), func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"reg_no": claims.RegNo, "token": GetToken(c)})
	})
	return r
}

func TestRequireCandidateJWT(t *testing.T) {
	valid := mintToken(t, testSecret, RoleCandidate, time.Hour)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"valid bearer header", "Bearer " + valid, "", http.StatusOK},
		{"valid query fallback", "", valid, http.StatusOK},
		{"missing token", "", "", http.StatusUnauthorized},
		{"malformed header scheme", "Token " + valid, "", http.StatusUnauthorized},
		{"wrong signing secret", "Bearer " + mintToken(t, "other-secret", RoleCandidate, time.Hour), "", http.StatusUnauthorized},
		{"expired token", "Bearer " + mintToken(t, testSecret, RoleCandidate, -time.Minute), "", http.StatusUnauthorized},
		{"non-candidate role", "Bearer " + mintToken(t, testSecret, "faculty", time.Hour), "", http.StatusForbidden},
	}

	r := authRouter()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := "/guarded"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body)
			}
		})
	}
}

func TestRequireCandidateJWT_ExposesClaimsAndRawToken(t *testing.T) {
	valid := mintToken(t, testSecret, RoleCandidate, time.Hour)
	r := authRouter()

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	body := w.Body.String()
	for _, want := range []string{`"reg_no":"21BCE100"`, `"token":"` + valid + `"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %s missing %s", body, want)
		}
	}
}
