package nats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ierr "github.com/mark3labs/dualai/internal/errors"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// portFile is written next to the JetStream store by the process that owns
// the server, so other dualai processes can join as clients.
const portFile = "server.port"

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled
// using the specified data directory for file-based storage. The server
// listens on a random loopback port, which is returned and recorded in the
// data directory.
func StartEmbeddedNATS(dataDir string) (*server.Server, int, error) {
	logger.Debug("Starting embedded NATS server with data dir: %s", dataDir)

	opts := &server.Options{
		JetStream: true,
		StoreDir:  dataDir,
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		logger.Error("Failed to create NATS server: %v", err)
		return nil, 0, err
	}

	// Start server in background goroutine
	go ns.Start()

	if !ns.ReadyForConnections(4 * time.Second) {
		logger.Error("NATS server failed to start within 4s timeout")
		ns.Shutdown()
		return nil, 0, errors.New("nats server failed to start within timeout")
	}

	addr, ok := ns.Addr().(*net.TCPAddr)
	if !ok {
		ns.Shutdown()
		return nil, 0, fmt.Errorf("unexpected NATS listen address %v", ns.Addr())
	}
	p := addr.Port

	if err := WritePort(dataDir, p); err != nil {
		logger.Warn("Failed to write NATS port file: %v", err)
	}

	logger.Debug("NATS server ready for connections on port %d", p)
	return ns, p, nil
}

// WritePort records the listening port in dataDir.
func WritePort(dataDir string, port int) error {
	return os.WriteFile(filepath.Join(dataDir, portFile), []byte(strconv.Itoa(port)), 0644)
}

// ReadPort returns the port recorded in dataDir, or 0 when there is none.
func ReadPort(dataDir string) int {
	data, err := os.ReadFile(filepath.Join(dataDir, portFile))
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port <= 0 {
		return 0
	}
	return port
}

// ConnectToPort connects to a NATS server on the loopback interface.
func ConnectToPort(port int) (*nats.Conn, error) {
	url := fmt.Sprintf("nats://127.0.0.1:%d", port)
	return nats.Connect(url, nats.Timeout(time.Second), nats.Name("dualai"))
}

// TryConnectExisting connects to a server already owned by another process
// for the same data directory. Returns nil when none is reachable.
func TryConnectExisting(dataDir string) *nats.Conn {
	port := ReadPort(dataDir)
	if port == 0 {
		return nil
	}
	nc, err := ConnectToPort(port)
	if err != nil {
		logger.Debug("Stale NATS port file (port %d): %v", port, err)
		return nil
	}
	return nc
}

// ConnectInProcess creates an in-process connection to the embedded NATS server.
// This connection does not use network ports and communicates directly with the server.
func ConnectInProcess(ns *server.Server) (*nats.Conn, error) {
	logger.Debug("Connecting to NATS server in-process")
	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		logger.Error("Failed to connect to NATS in-process: %v", err)
		return nil, err
	}
	return conn, nil
}

// CreateJetStream creates a JetStream context from a NATS connection.
func CreateJetStream(nc *nats.Conn) (jetstream.JetStream, error) {
	return jetstream.New(nc)
}

// Shutdown gracefully shuts down the NATS connection and server.
// It first drains and closes the connection, then shuts down the server
// with a timeout to allow in-flight operations to complete.
func Shutdown(nc *nats.Conn, ns *server.Server) error {
	logger.Debug("Starting NATS shutdown")

	if nc != nil {
		drainDone := make(chan error, 1)
		go func() {
			drainDone <- nc.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				logger.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			logger.Warn("NATS drain timed out after 2s, forcing close")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		shutdownDone := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
			logger.Debug("NATS server shut down cleanly")
		case <-time.After(5 * time.Second):
			logger.Error("NATS server shutdown timed out after 5s")
			return errors.New("NATS server shutdown timed out")
		}
	}

	return nil
}

// Conn is a connection to the dualai event stream, either owning an
// embedded server (primary) or joining one started by another process.
type Conn struct {
	NC      *nats.Conn
	JS      jetstream.JetStream
	Stream  jetstream.Stream
	server  *server.Server
	dataDir string
	stopped bool
}

// Primary reports whether this process owns the server.
func (c *Conn) Primary() bool {
	return c.server != nil
}

// Open joins an existing server for dataDir or starts one, then sets up
// the event stream.
func Open(ctx context.Context, dataDir string) (*Conn, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create NATS data directory: %w", err)
	}

	c := &Conn{dataDir: dataDir}

	if nc := TryConnectExisting(dataDir); nc != nil {
		logger.Info("Connected to existing NATS server (node mode)")
		c.NC = nc
	} else {
		logger.Info("Starting NATS server (primary mode)")
		ns, port, err := StartEmbeddedNATS(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to start NATS server: %w", err)
		}
		c.server = ns

		nc, err := ConnectToPort(port)
		if err != nil {
			ns.Shutdown()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		c.NC = nc
	}

	js, err := CreateJetStream(c.NC)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	c.JS = js

	stream, err := SetupStream(ctx, js)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup stream: %w", err)
	}
	c.Stream = stream
	return c, nil
}

// Close closes the connection and, in primary mode, stops the server.
// It is safe to call more than once.
func (c *Conn) Close() error {
	if c.stopped {
		return nil
	}
	c.stopped = true

	multiErr := &ierr.MultiError{}
	if c.server != nil {
		if err := Shutdown(c.NC, c.server); err != nil {
			multiErr.Append(fmt.Errorf("NATS shutdown failed: %w", err))
		}
		if err := os.Remove(filepath.Join(c.dataDir, portFile)); err != nil && !os.IsNotExist(err) {
			multiErr.Append(ierr.NewTransientError("remove port file", err))
		}
	} else if c.NC != nil {
		c.NC.Close()
	}
	return multiErr.ErrorOrNil()
}
