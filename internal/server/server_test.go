package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/PranavKndpl/FluxDB/internal/config"
	"github.com/PranavKndpl/FluxDB/internal/database"
	"github.com/PranavKndpl/FluxDB/internal/logger"
	"github.com/PranavKndpl/FluxDB/internal/pubsub"
)

func startTestServer(t *testing.T, requirePassword string) *Server {
	t.Helper()
	dir := t.TempDir()
	dbManager, err := database.NewManager(dir, config.CollectionConfig{
		JanitorInterval: time.Hour,
		TTLInterval:     time.Hour,
	}, config.WALConfig{MaxSizeBytes: 1 << 20, Fsync: true}, logger.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { dbManager.CloseAll() })

	s := New(config.ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		MaxConnections:  16,
		RecvTimeout:     200 * time.Millisecond,
		RequirePassword: requirePassword,
	}, dbManager, pubsub.NewManager(), nil, logger.Default())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func dial(t *testing.T, s *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, conn net.Conn, reader *bufio.Reader, line string) string {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp[:len(resp)-1]
}

func TestServerRoundTripsInsertAndGet(t *testing.T) {
	s := startTestServer(t, "")
	conn, reader := dial(t, s)

	if resp := sendLine(t, conn, reader, "USE t1"); resp != "OK SWITCHED_TO t1 (NEW_DATABASE_CREATED)" {
		t.Fatalf("unexpected USE response: %q", resp)
	}
	if resp := sendLine(t, conn, reader, `INSERT {"a":1}`); resp != "OK ID=1" {
		t.Fatalf("unexpected INSERT response: %q", resp)
	}
	if resp := sendLine(t, conn, reader, "GET 1"); resp != `OK {"a":1}` {
		t.Fatalf("unexpected GET response: %q", resp)
	}
}

func TestServerRejectsCommandsBeforeAuth(t *testing.T) {
	s := startTestServer(t, "secret")
	conn, reader := dial(t, s)

	if resp := sendLine(t, conn, reader, "USE t1"); resp != "ERROR AUTH_REQUIRED" {
		t.Fatalf("expected AUTH_REQUIRED, got %q", resp)
	}
	if resp := sendLine(t, conn, reader, "AUTH secret"); resp != "OK AUTHENTICATED" {
		t.Fatalf("expected OK AUTHENTICATED, got %q", resp)
	}
	if resp := sendLine(t, conn, reader, "USE t1"); resp[:2] != "OK" {
		t.Fatalf("expected USE to succeed post-auth, got %q", resp)
	}
}

func TestServerSurvivesIdleReadTimeout(t *testing.T) {
	s := startTestServer(t, "")
	conn, reader := dial(t, s)

	time.Sleep(500 * time.Millisecond)

	if resp := sendLine(t, conn, reader, "USE t1"); resp[:2] != "OK" {
		t.Fatalf("expected connection to survive idle read timeouts, got %q", resp)
	}
}

func TestServerPubSubAcrossConnections(t *testing.T) {
	s := startTestServer(t, "")
	subConn, subReader := dial(t, s)
	pubConn, pubReader := dial(t, s)

	if resp := sendLine(t, subConn, subReader, "SUBSCRIBE news"); resp != "OK SUBSCRIBED_TO news" {
		t.Fatalf("unexpected SUBSCRIBE response: %q", resp)
	}
	if resp := sendLine(t, pubConn, pubReader, "PUBLISH news hello"); resp != "OK RECEIVERS=1" {
		t.Fatalf("unexpected PUBLISH response: %q", resp)
	}

	subConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := subReader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected to receive published message: %v", err)
	}
	if msg[:len(msg)-1] != "MESSAGE news hello" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestServerStopClosesConnections(t *testing.T) {
	s := startTestServer(t, "")
	conn, _ := dial(t, s)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected connection to be closed after Stop")
	}
}
