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
	"net"
	"sync/atomic"
)

// CountedConn wraps a net.Conn and counts the bytes moved in each direction.
type CountedConn struct {
	net.Conn
	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
}

// NewCountedConn creates a CountedConn around conn.
func NewCountedConn(conn net.Conn) *CountedConn {
	return &CountedConn{Conn: conn}
}

// Read implements net.Conn.Read()
func (c *CountedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.bytesIn.Add(uint64(n))
	}
	return n, err
}

// Write implements net.Conn.Write()
func (c *CountedConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.bytesOut.Add(uint64(n))
	}
	return n, err
}

// BytesIn is the number of bytes read from the peer.
func (c *CountedConn) BytesIn() uint64 {
	return c.bytesIn.Load()
}

// BytesOut is the number of bytes written to the peer.
func (c *CountedConn) BytesOut() uint64 {
	return c.bytesOut.Load()
}
