package database

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/xelth-com/cspsgo/internal/config"
)

// embeddedPassword is set on the superuser of the embedded cluster
const embeddedPassword = "postgres"

// startEmbedded boots a local PostgreSQL in cfg.EmbeddedDir and returns the
// configuration to reach it.
func startEmbedded(cfg config.DatabaseConfig) (*embeddedpostgres.EmbeddedPostgres, config.DatabaseConfig, error) {
	log.WithField("dir", cfg.EmbeddedDir).Info("📦 Mode: [Embedded PostgreSQL] - Initializing internal database...")

	reclaimStaleServer(cfg.EmbeddedDir)
	if err := waitForPort(cfg.EmbeddedPort, 3*time.Second); err != nil {
		return nil, cfg, err
	}

	server := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(cfg.EmbeddedDir).
		Port(uint32(cfg.EmbeddedPort)).
		Database(cfg.Database).
		Username(cfg.Username).
		Password(embeddedPassword))
	if err := server.Start(); err != nil {
		return nil, cfg, fmt.Errorf("failed to start embedded database: %w", err)
	}

	cfg.Port = strconv.Itoa(cfg.EmbeddedPort)
	cfg.Password = embeddedPassword
	log.Infof("✅ Embedded PostgreSQL process started on port %d", cfg.EmbeddedPort)
	return server, cfg, nil
}

// reclaimStaleServer stops a postmaster left behind by a crashed run and
// removes its pid file so the cluster can start again.
func reclaimStaleServer(dataDir string) {
	pidFile := filepath.Join(dataDir, "postmaster.pid")
	pid, err := readPostmasterPID(pidFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("⚠️  Ignoring unreadable %s: %v", pidFile, err)
		}
		return
	}
	defer os.Remove(pidFile)

	proc, err := os.FindProcess(pid)
	if err != nil || !alive(proc) {
		log.Infof("🧹 Removing stale postmaster.pid (PID %d not running)", pid)
		return
	}

	log.Warnf("⚠️  Found orphaned PostgreSQL process (PID %d), stopping it", pid)
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		log.Warnf("⚠️  Could not send SIGTERM to PID %d: %v", pid, err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(250 * time.Millisecond)
		if !alive(proc) {
			log.Info("✅ Orphaned PostgreSQL process stopped")
			return
		}
	}

	log.Warn("⚠️  Process did not stop gracefully, sending SIGKILL")
	_ = proc.Kill()
	time.Sleep(500 * time.Millisecond)
}

// readPostmasterPID returns the pid on the first line of a postmaster.pid file
func readPostmasterPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", first)
	}
	return pid, nil
}

// alive uses signal 0, since FindProcess always succeeds on unix
func alive(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}

// waitForPort waits until nothing listens on the local port
func waitForPort(port int, timeout time.Duration) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			return nil
		}
		conn.Close()
		if time.Now().After(deadline) {
			return fmt.Errorf("port %d is still in use by another process", port)
		}
		log.Warnf("⚠️  Port %d still in use, waiting for release...", port)
		time.Sleep(500 * time.Millisecond)
	}
}
