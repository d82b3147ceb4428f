package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	salt    = []byte("school-management.core.user.token_gen")
	NowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// tokenGenerator makes and verifies password reset tokens of the form "<base32 unix seconds>-<signature>".
// A token is invalidated as soon as the password or the last login changes.
type tokenGenerator struct {
	secretKey string
	timeout   time.Duration
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

func (g tokenGenerator) makeToken(usr User) (string, error) {
	return g.tokenAt(usr, NowFunc().Unix())
}

func (g tokenGenerator) verifyToken(usr User, token string) error {
	stamp, _, found := cut(token, "-")
	if !found || stamp == "" {
		return errInvalidToken
	}
	raw, err := b32.DecodeString(stamp)
	if err != nil {
		return errInvalidToken
	}
	issuedAt, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return errInvalidToken
	}

	// the signature covers the user state at issue time
	want, err := g.tokenAt(usr, issuedAt)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 0 {
		return errInvalidToken
	}

	if NowFunc().Sub(time.Unix(issuedAt, 0)) > g.timeout {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) tokenAt(usr User, issuedAt int64) (string, error) {
	ts := strconv.FormatInt(issuedAt, 10)
	key := sha256.Sum256(append(append([]byte{}, salt...), g.secretKey...))
	mac := hmac.New(sha256.New, key[:])
	for _, part := range tokenState(usr, ts) {
		if _, err := mac.Write([]byte(part)); err != nil {
			return "", err
		}
	}
	return b32.EncodeToString([]byte(ts)) + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func tokenState(usr User, ts string) []string {
	lastLogin := ""
	if usr.LastLogin.Valid {
		lastLogin = usr.LastLogin.Time.UTC().Format(time.RFC3339Nano)
	}
	return []string{usr.ID, string(usr.PasswordHash), lastLogin, ts}
}

// cut is strings.Cut, which needs go1.18.
func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
