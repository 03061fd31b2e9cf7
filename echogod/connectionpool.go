/**
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

package echogod

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// ErrPoolTimeout is returned when no pooled connection frees up in time.
var ErrPoolTimeout = errors.New("connection timeout")

// ConnectionPool maintains a channel of connections to an echo server. Each
// connection has had its greeting consumed before it is put on the channel,
// so whatever is read from it afterwards is echoed data.
type ConnectionPool struct {
	// Size indicates the number of connections to keep open.
	Size int
	// Connections is the channel to push new/reused connections onto.
	Connections chan net.Conn
	// Addr is the host:port of the server.
	Addr string
	// GreetingLines is how many lines the server sends on connect.
	GreetingLines int
	// Timeout is the amount of time to wait for a connection.
	Timeout time.Duration

	errorCount atomic.Int64
}

// CreateConnectionPool creates instances of ConnectionPool.
func CreateConnectionPool(size int, addr string, greetingLines int, timeout time.Duration, logger Logger) (*ConnectionPool, error) {
	var pool = new(ConnectionPool)
	pool.Size = size
	pool.Addr = addr
	pool.GreetingLines = greetingLines
	pool.Timeout = timeout
	pool.Connections = make(chan net.Conn, size)

	errorCount := 0
	for i := 0; i < size; i++ {
		added, err := pool.CreateConnection(logger)
		if !added || err != nil {
			errorCount++
		}
	}

	if errorCount > 0 {
		return pool, fmt.Errorf("%d connections failed", errorCount)
	}

	return pool, nil
}

// CreateConnection dials the server and reads past its greeting.
func (pool *ConnectionPool) CreateConnection(logger Logger) (bool, error) {
	if len(pool.Connections) >= pool.Size {
		return false, errors.New("attempt to add too many connections to the pool")
	}

	logger.Trace.Printf("Connecting to %s", pool.Addr)
	conn, err := net.DialTimeout("tcp", pool.Addr, pool.Timeout)
	if err != nil {
		pool.errorCount.Add(1)
		logger.Error.Println("Connection Error.", err)
		return false, err
	}
	conn.SetDeadline(time.Now().Add(pool.Timeout))

	if err := skipGreeting(conn, pool.GreetingLines); err != nil {
		pool.errorCount.Add(1)
		logger.Error.Println("Could not read greeting.", err)
		conn.Close()
		return false, err
	}

	pool.Connections <- conn
	return true, nil
}

// GetConnection retrieves a connection from the pool.
func (pool *ConnectionPool) GetConnection(logger Logger) (net.Conn, error) {
	select {
	case conn := <-pool.Connections:
		return conn, nil
	case <-time.After(pool.Timeout):
		logger.Error.Println("No connections available.")
		return nil, ErrPoolTimeout
	}
}

// ReleaseConnection releases a connection back to the pool.
func (pool *ConnectionPool) ReleaseConnection(conn net.Conn, recreate bool, logger Logger) (bool, error) {
	// recreate signifies that there was something wrong with the connection and
	// that we should make a new one.
	if recreate {
		conn.Close()
		added, err := pool.CreateConnection(logger)
		if !added || err != nil {
			logger.Error.Println("Could not release connection.", err)
			return false, err
		}
		return true, nil
	}

	// Reset the timeout and put it back on the channel.
	conn.SetDeadline(time.Now().Add(pool.Timeout))
	pool.Connections <- conn
	return true, nil
}

// ErrorCount is the number of connection errors that have occurred.
func (pool *ConnectionPool) ErrorCount() int64 {
	return pool.errorCount.Load()
}

// skipGreeting reads the greeting lines off a fresh connection. The server
// sends nothing else until the client writes, so anything buffered past the
// last line means the line count is wrong.
func skipGreeting(conn net.Conn, lines int) error {
	reader := bufio.NewReader(conn)
	for i := 0; i < lines; i++ {
		if _, err := reader.ReadString('\n'); err != nil {
			return err
		}
	}
	if reader.Buffered() > 0 {
		return fmt.Errorf("%d unexpected bytes after greeting", reader.Buffered())
	}
	return nil
}
