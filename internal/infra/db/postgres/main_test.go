//go:build integration

package postgres

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

var testPool *pgxpool.Pool

// TestMain uses DATABASE_URL when set, otherwise starts a throwaway
// postgres container.
func TestMain(m *testing.M) {
	ctx := context.Background()

	containerID := ""
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		dbName, dbUser, dbPassword, dbPort := "test-db", "user", "password", "5432"
		cmd := exec.Command("docker", "run", "-d", "--rm",
			"--network", "host",
			"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
			"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
			"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
			"postgres:14",
		)
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			log.Fatalf("could not start postgres container: %v. Is Docker running?", err)
		}
		containerID = strings.TrimSpace(out.String())[:12]
		connStr = fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, dbPort, dbName)
	}

	var err error
	const maxRetries = 15
	for i := 0; i < maxRetries; i++ {
		testPool, err = NewPgxPool(ctx, connStr, 4)
		if err == nil {
			break
		}
		log.Printf("Waiting for database to be ready... (attempt %d/%d)", i+1, maxRetries)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		stopContainer(containerID)
		log.Fatalf("Unable to connect to test database after multiple retries: %v\n", err)
	}

	if err := NewKVStore(testPool).EnsureSchema(ctx); err != nil {
		stopContainer(containerID)
		log.Fatalf("could not apply schema: %s", err)
	}

	exitCode := m.Run()

	testPool.Close()
	stopContainer(containerID)
	os.Exit(exitCode)
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	if err := exec.Command("docker", "stop", id).Run(); err != nil {
		log.Printf("could not stop postgres container %s: %v", id, err)
	}
}

func cleanup(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `TRUNCATE kv_store`); err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}
