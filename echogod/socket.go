/**
 * Copyright 2014 Acquia, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package echogod - this library manages the listening socket and hands
// accepted connections to the greeting or echo handlers.
package echogod

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Enumeration of the socket types.
const (
	SocketTypeGreet = iota
	SocketTypeEcho
)

var (
	// ErrBind is wrapped by every failure to establish the listening socket.
	ErrBind = errors.New("bind failed")
	// ErrAccept is wrapped by a failure to accept a connection.
	ErrAccept = errors.New("accept failed")
)

// Socket is the interface for all of our socket types.
type Socket interface {
	Bind(logger Logger) error
	Listen(logger Logger) error
	Close(logger Logger)
	Reload(config ConfigValues)
	GetConfig() ConfigValues
	GetAddr() string
	SocketIsActive() bool
}

// CreateSocket is a factory to create Socket structs.
func CreateSocket(socketType int, config ConfigValues) Socket {
	switch socketType {
	case SocketTypeGreet, SocketTypeEcho:
		l := new(SocketTcp)
		l.Type = socketType
		l.Addr = config.GetAddr()
		l.config.Store(&config)
		return l
	default:
		panic("Unknown socket type requested.")
	}
}

// SocketTypeFromMode maps a service.mode value onto a socket type.
func SocketTypeFromMode(mode string) (int, error) {
	switch mode {
	case ModeGreet:
		return SocketTypeGreet, nil
	case ModeEcho:
		return SocketTypeEcho, nil
	}
	return 0, fmt.Errorf("unknown mode %q, expected %q or %q", mode, ModeGreet, ModeEcho)
}

// BlockForSocket blocks until the specified socket is active.
func BlockForSocket(socket Socket, timeout time.Duration) {
	start := time.Now()
	for {
		if socket.SocketIsActive() {
			return
		}
		time.Sleep(time.Microsecond)
		if time.Since(start) > timeout {
			return
		}
	}
}

// SocketTcp contains the required fields to start a TCP socket.
type SocketTcp struct {
	Addr string
	Type int

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
	config   atomic.Pointer[ConfigValues]
}

// Bind establishes the listening socket. Conforms to Socket.Bind(). It is a
// no-op once the socket is bound.
func (l *SocketTcp) Bind(logger Logger) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listener != nil {
		return nil
	}
	if l.Addr == "" {
		return fmt.Errorf("%w: address must be specified", ErrBind)
	}

	listener, err := listenTCP(l.Addr, l.GetConfig().Connection.Backlog)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBind, err)
	}
	l.listener = listener

	logger.Info.Println("bind done")
	logger.Trace.Printf("TCP socket opened on %s", listener.Addr())
	return nil
}

// Listen accepts connections until the socket is closed or accept fails.
// Conforms to Socket.Listen(). A nil return means the socket was closed.
func (l *SocketTcp) Listen(logger Logger) error {
	if err := l.Bind(logger); err != nil {
		return err
	}

	l.mu.Lock()
	listener := l.listener
	l.mu.Unlock()

	logger.Info.Println("Waiting for incoming connections...")
	for {
		conn, err := listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrAccept, err)
		}
		logger.Info.Println("Connection accepted")
		l.handleConnection(conn, logger)
	}
}

// handleConnection dispatches an accepted connection to the handler for the
// socket type. Greet connections are served inline, echo connections get
// their own goroutine.
func (l *SocketTcp) handleConnection(conn net.Conn, logger Logger) {
	config := l.GetConfig()
	counted := NewCountedConn(conn)
	connLogger := logger.With("conn", uuid.New().String()).With("remote", conn.RemoteAddr().String())

	switch l.Type {
	case SocketTypeGreet:
		GreetConnection(counted, config.Greeting.Live, connLogger)
	case SocketTypeEcho:
		if err := writeLine(counted, config.Greeting.Assigned); err != nil {
			connLogger.Warning.Println("Could not send greeting.", err)
		}
		go EchoConnection(counted, CreateEchoOptions(config), connLogger)
		logger.Info.Println("Handler assigned")
	}
}

// Close closes an open socket. Conforms to Socket.Close().
func (l *SocketTcp) Close(logger Logger) {
	logger.Info.Println("Closing TCP socket.")
	l.closed.Store(true)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener != nil {
		l.listener.Close()
	}
}

// Reload swaps in a new configuration for connections accepted from now on.
// The listening address is never rebound. Conforms to Socket.Reload().
func (l *SocketTcp) Reload(config ConfigValues) {
	l.config.Store(&config)
}

// GetConfig returns the configuration currently in use. Conforms to
// Socket.GetConfig().
func (l *SocketTcp) GetConfig() ConfigValues {
	return *l.config.Load()
}

// SocketIsActive determines if the socket is listening. Conforms to Socket.SocketIsActive()
func (l *SocketTcp) SocketIsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listener != nil
}

// GetAddr retrieves a net compatible address string. Conforms to Socket.GetAddr().
func (l *SocketTcp) GetAddr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return l.Addr
	}
	return l.listener.Addr().String()
}
