// Package auth provides MEXC futures request signing.
//
// Two schemes are used by the exchange:
//   - WebSocket login: hex(HMAC-SHA256(secretKey, apiKey + reqTime)).
//   - Browser-token REST calls: x-mxc-nonce / x-mxc-sign headers derived from the
//     WEB token and the exact JSON request body.
package auth

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Header names used by the browser-token REST scheme.
const (
	HeaderAuthorization = "authorization"
	HeaderNonce         = "x-mxc-nonce"
	HeaderSign          = "x-mxc-sign"
)

// Credentials holds the WebSocket API key pair.
type Credentials struct {
	APIKey    string
	SecretKey string
}

// NewCredentials validates and returns a key pair.
func NewCredentials(apiKey, secretKey string) (*Credentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	return &Credentials{APIKey: apiKey, SecretKey: secretKey}, nil
}

// LoginParams is the param object of a WebSocket login message.
type LoginParams struct {
	APIKey    string `json:"apiKey"`
	Signature string `json:"signature"`
	ReqTime   string `json:"reqTime"`
}

// SignLogin builds login params for the current time.
func (c *Credentials) SignLogin() LoginParams {
	return c.SignLoginAt(time.Now())
}

// SignLoginAt builds login params for the given request time.
func (c *Credentials) SignLoginAt(t time.Time) LoginParams {
	reqTime := Timestamp(t)
	return LoginParams{
		APIKey:    c.APIKey,
		Signature: LoginSignature(c.APIKey, c.SecretKey, reqTime),
		ReqTime:   reqTime,
	}
}

// LoginSignature returns hex(HMAC-SHA256(secretKey, apiKey + reqTime)).
func LoginSignature(apiKey, secretKey, reqTime string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(apiKey + reqTime))
	return hex.EncodeToString(mac.Sum(nil))
}

// Timestamp formats t as decimal milliseconds since the epoch.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// TokenSigner signs REST requests with a browser WEB token.
type TokenSigner struct {
	Token string
	now   func() time.Time
}

// NewTokenSigner returns a signer for the given WEB token.
func NewTokenSigner(token string) *TokenSigner {
	return &TokenSigner{Token: token, now: time.Now}
}

// Headers returns the authentication headers for a request. The body must be the
// exact bytes sent on the wire; a nil body only yields the authorization header.
func (s *TokenSigner) Headers(body []byte) map[string]string {
	headers := map[string]string{
		HeaderAuthorization: s.Token,
	}
	if body == nil {
		return headers
	}

	ts := Timestamp(s.now())
	headers[HeaderNonce] = ts
	headers[HeaderSign] = BodySignature(s.Token, ts, body)
	return headers
}

// BodySignature computes md5(ts + body + md5(token + ts)[7:]) as lowercase hex.
func BodySignature(token, ts string, body []byte) string {
	g := md5Hex([]byte(token + ts))[7:]

	buf := make([]byte, 0, len(ts)+len(body)+len(g))
	buf = append(buf, ts...)
	buf = append(buf, body...)
	buf = append(buf, g...)
	return md5Hex(buf)
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
