// Package media signs client-side ImageKit uploads and deletes uploaded
// files. Topic content embeds the resulting image URLs.
package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/periodical/internal/config"
)

// UploadTTL is how long a signed upload stays valid.
const UploadTTL = 30 * time.Minute

var (
	ErrNotConfigured  = errors.New("media storage is not configured")
	ErrFileIDRequired = errors.New("file id is required")
	ErrFileNotFound   = errors.New("file not found")
)

// UploadAuth is what the browser passes to the ImageKit upload API.
type UploadAuth struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

// ImageKit talks to the ImageKit media API with the account's private key.
type ImageKit struct {
	publicKey  string
	privateKey string
	apiBaseURL string
	httpClient *http.Client
	now        func() time.Time
}

func NewImageKit(cfg config.MediaConfig) *ImageKit {
	return &ImageKit{
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Configured reports whether a private key is set.
func (k *ImageKit) Configured() bool {
	return k != nil && k.privateKey != ""
}

// UploadAuth returns a single-use upload signature: HMAC-SHA1 over
// token+expire keyed with the private key, hex encoded.
func (k *ImageKit) UploadAuth() (*UploadAuth, error) {
	if !k.Configured() {
		return nil, ErrNotConfigured
	}

	token := uuid.NewString()
	expire := k.now().Add(UploadTTL).Unix()
	return &UploadAuth{
		Token:     token,
		Expire:    expire,
		Signature: k.sign(token, expire),
		PublicKey: k.publicKey,
	}, nil
}

func (k *ImageKit) sign(token string, expire int64) string {
	mac := hmac.New(sha1.New, []byte(k.privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// DeleteFile removes an uploaded file by its ImageKit file id.
func (k *ImageKit) DeleteFile(ctx context.Context, fileID string) error {
	if !k.Configured() {
		return ErrNotConfigured
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return ErrFileIDRequired
	}

	endpoint := k.apiBaseURL + "/v1/files/" + url.PathEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("imagekit: create delete request: %w", err)
	}
	req.SetBasicAuth(k.privateKey, "")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagekit: delete file: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrFileNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("imagekit: delete file: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
