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

	schema "hotspot-billing/deploy/postgres"
)

var testPool *pgxpool.Pool

// startContainer runs a throwaway postgres and returns its DSN and a stop func.
func startContainer() (string, func(), error) {
	const (
		dbName = "hotspot_test"
		dbUser = "hotspot"
		dbPass = "hotspot"
		dbPort = "55432"
	)
	cmd := exec.Command("docker", "run", "-d", "--rm",
		"-p", dbPort+":5432",
		"-e", "POSTGRES_DB="+dbName,
		"-e", "POSTGRES_USER="+dbUser,
		"-e", "POSTGRES_PASSWORD="+dbPass,
		"postgres:16-alpine",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", nil, fmt.Errorf("start postgres container (is docker running?): %w", err)
	}
	id := strings.TrimSpace(out.String())
	stop := func() {
		if err := exec.Command("docker", "stop", id).Run(); err != nil {
			log.Printf("stop container %s: %v", id, err)
		}
	}
	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPass, dbPort, dbName)
	return dsn, stop, nil
}

// TestMain uses TEST_DATABASE_URL when set, otherwise a docker container.
func TestMain(m *testing.M) {
	ctx := context.Background()
	stop := func() {}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		var err error
		dsn, stop, err = startContainer()
		if err != nil {
			log.Fatal(err)
		}
	}

	var err error
	for attempt := 1; attempt <= 20; attempt++ {
		testPool, err = NewPgxPool(ctx, dsn, 8)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		stop()
		log.Fatalf("database not reachable: %v", err)
	}
	if err := Migrate(ctx, testPool, schema.InitSQL); err != nil {
		testPool.Close()
		stop()
		log.Fatalf("migrate: %v", err)
	}

	code := m.Run()

	testPool.Close()
	stop()
	os.Exit(code)
}

func cleanup(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE vouchers, transactions, packages, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
