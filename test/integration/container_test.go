//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	historyImage    = "postgres:16-alpine"
	historyDatabase = "sqlconv"
	historyUser     = "sqlconv"
	historyPassword = "sqlconv"
)

// historyContainer is a disposable Postgres that backs the conversion
// history tests when TEST_DATABASE_URL is not set.
type historyContainer struct {
	id   string
	port int
}

func (hc *historyContainer) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@127.0.0.1:%d/%s?sslmode=disable",
		historyUser, historyPassword, hc.port, historyDatabase)
}

func (hc *historyContainer) stop() {
	if hc.id != "" {
		_ = exec.Command("docker", "rm", "-f", "-v", hc.id).Run()
	}
}

// startPostgres launches the history database with the Docker CLI and
// blocks until it accepts queries.
func startPostgres(ctx context.Context) (string, func(), error) {
	port, err := reservePort()
	if err != nil {
		return "", nil, fmt.Errorf("reserve port: %w", err)
	}

	hc := &historyContainer{port: port}
	out, err := exec.CommandContext(ctx, "docker", "run", "-d", "--rm",
		"--label", "sqlconv.test=history",
		"-p", fmt.Sprintf("127.0.0.1:%d:5432", port),
		"-e", "POSTGRES_USER="+historyUser,
		"-e", "POSTGRES_PASSWORD="+historyPassword,
		"-e", "POSTGRES_DB="+historyDatabase,
		historyImage,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run %s: %w: %s", historyImage, err, strings.TrimSpace(string(out)))
	}
	hc.id = strings.TrimSpace(string(out))

	if err := awaitHistoryDB(ctx, hc.dsn(), 30*time.Second); err != nil {
		hc.stop()
		return "", nil, err
	}
	return hc.dsn(), hc.stop, nil
}

func reservePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// awaitHistoryDB retries a single connection until SELECT 1 succeeds. The
// postgres image restarts once during init, so an early accepted connection
// is not enough.
func awaitHistoryDB(ctx context.Context, dsn string, within time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, within)
	defer cancel()

	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		if lastErr = selectOne(ctx, dsn); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("history database not ready after %s: %w", within, lastErr)
		case <-tick.C:
		}
	}
}

func selectOne(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}
