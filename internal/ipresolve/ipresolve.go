// Package ipresolve looks up the node's own public IP address, the
// external collaborator that is out of scope for the core consensus
// but still required for a runnable node. It is a single stdlib HTTP
// call — no third-party client fits a one-shot GET against a third
// party text endpoint any better than net/http itself (see DESIGN.md).
package ipresolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const lookupURL = "https://api.ipify.org"

// Resolve fetches the node's public IP address. Callers that pass
// --localhost should not call this at all.
func Resolve(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch public ip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("read ip lookup response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("ip lookup returned an empty body")
	}
	return ip, nil
}
