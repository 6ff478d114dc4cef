package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

func HashSecret(secret string) (string, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return "", fmt.Errorf("secret is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

func VerifySecret(secret, hash string) bool {
	trimmedSecret := strings.TrimSpace(secret)
	trimmedHash := strings.TrimSpace(hash)
	if trimmedSecret == "" || trimmedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(trimmedHash), []byte(trimmedSecret)) == nil
}

// Method names how a trigger request was authorized.
type Method string

const (
	MethodNone            Method = ""
	MethodSchedulerHeader Method = "scheduler_header"
	MethodBearerSecret    Method = "bearer_secret"
	MethodBearerHash      Method = "bearer_hash"
)

// CronAuthorizer accepts scheduler requests carrying the scheduler header or
// a bearer token matching the configured secret.
type CronAuthorizer struct {
	header     string
	secret     string
	secretHash string
}

func NewCronAuthorizer(header, secret, secretHash string) *CronAuthorizer {
	return &CronAuthorizer{
		header:     strings.TrimSpace(header),
		secret:     strings.TrimSpace(secret),
		secretHash: strings.TrimSpace(secretHash),
	}
}

// Authorize returns the method that accepted r, or MethodNone.
func (a *CronAuthorizer) Authorize(r *http.Request) Method {
	if a == nil || r == nil {
		return MethodNone
	}
	if a.header != "" && strings.TrimSpace(r.Header.Get(a.header)) != "" {
		return MethodSchedulerHeader
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return MethodNone
	}
	if a.secret != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) == 1 {
		return MethodBearerSecret
	}
	if a.secretHash != "" && VerifySecret(token, a.secretHash) {
		return MethodBearerHash
	}
	return MethodNone
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
