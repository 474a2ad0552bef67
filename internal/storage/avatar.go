package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	avatarFetchTimeout = 10 * time.Second
	maxAvatarBytes     = 5 << 20
)

// MirrorAvatar copies the portrait a federated provider exposes at
// pictureURL into the configured bucket, keyed by user id. The caller
// treats failures as non-fatal: signup never blocks on the avatar.
func MirrorAvatar(ctx context.Context, s *Storage, client *http.Client, userID int, pictureURL string) (string, error) {
	if pictureURL == "" {
		return "", nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, avatarFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pictureURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := fmt.Sprintf("avatars/%d", userID)
	if err := s.Put(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return "", err
	}
	return key, nil
}
