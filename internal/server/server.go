// Package server implements FluxDB's TCP front end: an accept loop
// bounded by an ants.Pool, one goroutine per connection, and a
// \n-terminated line protocol (\r stripped, OK/ERROR responses). The
// lifecycle (Start/Stop, connection tracking, graceful drain) is
// adapted from docdb/internal/ipc/server.go's Unix-socket binary-frame
// transport to TCP line framing.
package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/PranavKndpl/FluxDB/internal/config"
	"github.com/PranavKndpl/FluxDB/internal/database"
	"github.com/PranavKndpl/FluxDB/internal/logger"
	"github.com/PranavKndpl/FluxDB/internal/metrics"
	"github.com/PranavKndpl/FluxDB/internal/pubsub"
	"github.com/PranavKndpl/FluxDB/internal/query"
)

// Server accepts line-protocol TCP connections and dispatches each line
// through a query.Session bound to the shared DatabaseManager and
// PubSubManager.
type Server struct {
	cfg           config.ServerConfig
	log           *logger.Logger
	dbManager     *database.Manager
	pubsubManager *pubsub.Manager
	metrics       *metrics.Metrics

	mu       sync.Mutex
	running  bool
	listener net.Listener
	connPool *ants.Pool

	connMu      sync.Mutex
	connections map[net.Conn]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Server. m may be nil to disable metrics recording.
func New(cfg config.ServerConfig, dbManager *database.Manager, pubsubManager *pubsub.Manager, m *metrics.Metrics, log *logger.Logger) *Server {
	return &Server{
		cfg:           cfg,
		log:           log.Named("server"),
		dbManager:     dbManager,
		pubsubManager: pubsubManager,
		metrics:       m,
		connections:   make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and begins accepting connections. It is a
// no-op if already running.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.running = true
	s.stopCh = make(chan struct{})

	if s.cfg.MaxConnections > 0 {
		pool, err := ants.NewPool(s.cfg.MaxConnections, ants.WithPanicHandler(func(v interface{}) {
			s.log.Error("connection handler panic: %v", v)
		}))
		if err == nil {
			s.connPool = pool
		} else {
			s.log.Warn("failed to create connection pool, falling back to unbounded goroutines: %v", err)
		}
	}

	s.log.Info("FluxDB listening on %s", s.cfg.ListenAddr)

	s.wg.Add(1)
	go s.acceptLoop()

	if s.metrics != nil {
		s.wg.Add(1)
		go s.metricsLoop()
	}

	return nil
}

// Stop closes the listener, closes every active connection to unblock
// pending reads, and waits for all handlers to return.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()

	if s.connPool != nil {
		_ = s.connPool.ReleaseTimeout(3 * time.Second)
		s.connPool = nil
	}

	s.log.Info("FluxDB stopped")
	return nil
}

// Addr returns the listener's bound address. Only valid after Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr()
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isRunning() {
				return
			}
			s.log.Error("accept error: %v", err)
			continue
		}

		s.connMu.Lock()
		s.connections[conn] = struct{}{}
		s.connMu.Unlock()
		if s.metrics != nil {
			s.metrics.IncConnections()
		}

		s.wg.Add(1)
		run := func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}

		if s.connPool != nil {
			if err := s.connPool.Submit(run); err != nil {
				s.wg.Done()
				s.dropConnection(conn)
				s.log.Error("failed to submit connection handler to pool: %v", err)
			}
		} else {
			go run()
		}
	}
}

func (s *Server) dropConnection(conn net.Conn) {
	conn.Close()
	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()
	if s.metrics != nil {
		s.metrics.DecConnections()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.dropConnection(conn)

	s.log.Debug("new connection from %s", conn.RemoteAddr())

	writer := &connWriter{conn: conn}
	session := query.NewSession(s.dbManager, s.pubsubManager, s.metrics, s.cfg.RequirePassword, writer)
	defer session.Close()

	reader := bufio.NewReader(conn)
	for {
		if s.cfg.RecvTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.RecvTimeout))
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if isTimeout(err) && s.isRunning() {
				continue
			}
			s.log.Debug("connection from %s closed: %v", conn.RemoteAddr(), err)
			return
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		response := session.Process(line)
		if err := writer.Send(response); err != nil {
			s.log.Debug("write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// metricsLoop periodically refreshes the open-database, document-count,
// and WAL-size gauges from the currently open collections.
func (s *Server) metricsLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.refreshMetrics()
		}
	}
}

func (s *Server) refreshMetrics() {
	open := s.dbManager.OpenCollections()
	s.metrics.SetOpenDatabases(len(open))
	for name, c := range open {
		stats := c.Stats()
		s.metrics.SetDocuments(name, stats.DocumentCount)
		s.metrics.SetWALBytes(name, uint64(c.WALSize()))
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// connWriter adapts a net.Conn into a pubsub.Subscriber, serializing
// writes so a PUBLISH fan-out from another goroutine cannot interleave
// with the connection's own response writes.
type connWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

func (w *connWriter) Send(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.conn.Write([]byte(line + "\n"))
	return err
}
