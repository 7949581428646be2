// Package containertest starts the brokers and object stores used by
// integration tests.
package containertest

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Credentials of the MinIO server started by StartMinio.
const (
	MinioUser     = "minioadmin"
	MinioPassword = "minioadmin"
)

// StartRedpanda runs a single node broker and returns its address.
func StartRedpanda(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	port, err := getFreePort()
	assert.NoError(t, err)

	req := testcontainers.ContainerRequest{
		Image:      "docker.vectorized.io/vectorized/redpanda:latest",
		WaitingFor: wait.ForLog("Successfully started Redpanda!"),
		User:       "root:root",
		Cmd: []string{
			"redpanda",
			"start",
			"--smp", "1",
			"--reserve-memory", "0M",
			"--overprovisioned",
			"--node-id", "0",
			"--kafka-addr", fmt.Sprintf("OUTSIDE://0.0.0.0:%d", port),
		},
		// Fixed port mapping, the broker advertises the port it listens on.
		ExposedPorts: []string{fmt.Sprintf("%d:%d/tcp", port, port)},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	assert.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	assert.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, nat.Port(fmt.Sprintf("%d", port)))
	assert.NoError(t, err)
	return []string{fmt.Sprintf("%s:%d", host, mappedPort.Int())}
}

// StartMinio runs a MinIO server and returns its endpoint.
func StartMinio(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     MinioUser,
			"MINIO_ROOT_PASSWORD": MinioPassword,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	assert.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	assert.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("9000/tcp"))
	assert.NoError(t, err)
	return fmt.Sprintf("%s:%d", host, port.Int())
}

// getFreePort asks the kernel for a free open port that is ready to use.
func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
