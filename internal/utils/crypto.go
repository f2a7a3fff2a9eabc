// internal/utils/crypto.go
package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// GenerateLicenseKey returns a key like FH-XXXX-XXXX-XXXX-XXXX.
func GenerateLicenseKey() (string, error) {
	groups := make([]string, 4)
	for i := range groups {
		g, err := GenerateRandomString(4)
		if err != nil {
			return "", err
		}
		groups[i] = strings.ToUpper(g)
	}
	return "FH-" + strings.Join(groups, "-"), nil
}

func GenerateVerificationCode() (string, error) {
	return GenerateRandomString(32)
}

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// SignDownloadToken builds a time-limited opaque token embedding the file
// and access record ids. Used when S3 presigning is not configured.
func SignDownloadToken(secret, fileID, accessID string, issuedAt time.Time) string {
	payload := fmt.Sprintf("%s:%s:%d", fileID, accessID, issuedAt.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	sig := hex.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(payload + ":" + sig))
}

// VerifyDownloadToken checks the signature and age of a signed token and
// returns the embedded file and access ids.
func VerifyDownloadToken(secret, token string, maxAge time.Duration) (fileID, accessID string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", errors.New("malformed download token")
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 {
		return "", "", errors.New("malformed download token")
	}

	payload := strings.Join(parts[:3], ":")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return "", "", errors.New("invalid download token signature")
	}

	issued, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", errors.New("malformed download token")
	}
	if time.Since(time.Unix(issued, 0)) > maxAge {
		return "", "", errors.New("download token expired")
	}

	return parts[0], parts[1], nil
}
