// Command healthcheck calls the dashboard health endpoint and exits non-zero
// when it is unreachable. It is the container HEALTHCHECK for scratch images.
//
// Usage: healthcheck [config.yaml]
//
// The listen address is resolved the same way the server resolves it: the
// optional YAML file, then DEVISIBLE_LISTEN_ADDR.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ericfisherdev/devisible/internal/config"
)

const timeout = 2 * time.Second

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}

	if err := run(configFile); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	addr, err := config.ListenAddr(configFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return checkHealth(ctx, &http.Client{Timeout: timeout}, "http://"+loopbackAddr(addr))
}

// checkHealth reports an error unless baseURL answers the health endpoint
// with 200.
func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request health: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// loopbackAddr rewrites a bind-all listen address to loopback, since the
// healthcheck runs inside the server's own container.
func loopbackAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
