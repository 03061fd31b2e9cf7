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

// Package echogod - this library contains the per-connection handlers.
package echogod

import (
	"bytes"
	"io"
	"net"
	"time"
)

// Number of greeting lines a client receives before it may send data.
const (
	GreetGreetingLines = 1
	EchoGreetingLines  = 3
)

// EchoOptions is the per-connection snapshot of the echo configuration.
type EchoOptions struct {
	Handler string
	Prompt  string
	Buffer  int
	Timeout time.Duration
	Legacy  bool
}

// CreateEchoOptions copies the echo related values out of the config.
func CreateEchoOptions(config ConfigValues) EchoOptions {
	return EchoOptions{
		Handler: config.Greeting.Handler,
		Prompt:  config.Greeting.Prompt,
		Buffer:  config.Connection.Buffer,
		Timeout: config.Connection.Timeout,
		Legacy:  config.Echo.Legacy,
	}
}

// GreetConnection writes a single greeting line and closes the connection.
func GreetConnection(conn net.Conn, greeting string, logger Logger) {
	defer closeConnection(conn, logger)

	if err := writeLine(conn, greeting); err != nil {
		logger.Warning.Println("Could not send greeting.", err)
	}
}

// EchoConnection sends the handler greeting and then writes every chunk read
// from the connection back to it until the peer hangs up or an error occurs.
// The connection is always closed on return.
func EchoConnection(conn net.Conn, opts EchoOptions, logger Logger) {
	defer closeConnection(conn, logger)

	for _, line := range []string{opts.Handler, opts.Prompt} {
		if err := writeLine(conn, line); err != nil {
			logger.Error.Println("send failed", err)
			return
		}
	}

	bufferSize := opts.Buffer
	if bufferSize <= 0 {
		bufferSize = 2000
	}
	buf := make([]byte, bufferSize)

	for {
		if opts.Timeout > 0 {
			conn.SetReadDeadline(time.Now().Add(opts.Timeout))
		}
		length, err := conn.Read(buf)
		if length > 0 {
			reply := buf[:length]
			if opts.Legacy {
				reply = buf[:cStringLength(buf)]
			}
			if _, werr := conn.Write(reply); werr != nil {
				logger.Error.Println("send failed", werr)
				return
			}
		}
		if err != nil {
			// EOF is how a graceful hangup presents itself.
			if err == io.EOF {
				logger.Info.Println("Client disconnected")
			} else {
				logger.Error.Println("recv failed", err)
			}
			return
		}
	}
}

// cStringLength is the length of buf up to the first NUL byte. Legacy echo
// uses it as the reply length, which truncates at an embedded NUL and
// repeats stale bytes left in the buffer by a longer earlier read.
func cStringLength(buf []byte) int {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return i
	}
	return len(buf)
}

func writeLine(conn net.Conn, line string) error {
	_, err := io.WriteString(conn, line+"\n")
	return err
}

func closeConnection(conn net.Conn, logger Logger) {
	if err := conn.Close(); err != nil {
		logger.Warning.Println("Could not close connection.", err)
	}
	if counted, ok := conn.(*CountedConn); ok {
		logger.Trace.Printf("Connection closed, %d bytes in, %d bytes out", counted.BytesIn(), counted.BytesOut())
	}
}
