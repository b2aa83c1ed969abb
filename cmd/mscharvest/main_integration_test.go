//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nilaykumar/msc-viz/internal/testutil"
)

func setupTestRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	addr := host + ":" + port.Port()
	redisClient := redis.NewClient(&redis.Options{Addr: addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	redisClient.Close()

	return addr, func() { redisC.Terminate(ctx) }
}

func TestRun_Integration_Resume(t *testing.T) {
	addr, cleanup := setupTestRedis(t)
	defer cleanup()

	mock := setupMock(t)
	mock.SetPage("t1",
		testutil.NewServerErrorResponse(),
		testutil.NewPageResponse(testutil.Page([]testutil.Record{record("3", "Advances in Mathematics")}, nil)))

	path := filepath.Join(t.TempDir(), "data.csv")
	args := []string{"-base-url", mock.URL(), "-output", path, "-redis", addr, "-log-level", "error"}

	if code := run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{}); code != exitFailed {
		t.Fatalf("First run = %d, want %d", code, exitFailed)
	}

	stdout := &bytes.Buffer{}
	if code := run(context.Background(), append(args, "-resume"), stdout, &bytes.Buffer{}); code != exitOK {
		t.Fatalf("Resumed run = %d, want %d", code, exitOK)
	}

	if got, want := mock.Tokens(), []string{"", "t1", "t1"}; strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Requested tokens = %v, want %v", got, want)
	}

	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "\n") != 3 {
		t.Errorf("Expected header and two rows, got %q", data)
	}
	if !strings.Contains(stdout.String(), "...done!") {
		t.Errorf("Expected completion line, got %q", stdout.String())
	}
}
