package devserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"
)

// CSRFCookie carries the per-page seed of the double-submit token.
const CSRFCookie = "survey_csrf"

// tokens issues and checks anti-forgery tokens: the cookie holds a random
// seed and the page holds HMAC(secret, seed + ":" + scope).
type tokens struct {
	secret []byte
}

func (t tokens) issue(w http.ResponseWriter, scope string) string {
	seed := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    seed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return base64.URLEncoding.EncodeToString(t.sign(seed, scope))
}

func (t tokens) verify(r *http.Request, token, scope string) bool {
	cookie, err := r.Cookie(CSRFCookie)
	if err != nil || cookie.Value == "" || token == "" {
		return false
	}
	given, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(given, t.sign(cookie.Value, scope))
}

func (t tokens) sign(seed, scope string) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(seed + ":" + scope))
	return mac.Sum(nil)
}

func surveyScope(id string) string { return "survey:" + id }
