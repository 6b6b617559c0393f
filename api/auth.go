package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Decides whether a request may read analytics for a website.
type Authorizer interface {
	CanViewWebsite(req *http.Request, websiteID string) (bool, error)
}

// Authorizes requests carrying the configured bearer token. An empty token authorizes every
// request.
type TokenAuthorizer struct {
	token string
}

func NewTokenAuthorizer(token string) TokenAuthorizer {
	return TokenAuthorizer{token: token}
}

func (authorizer TokenAuthorizer) CanViewWebsite(req *http.Request, websiteID string) (bool, error) {
	if authorizer.token == "" {
		return true, nil
	}

	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(authorizer.token)) == 1, nil
}
