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

package echogod_test

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	. "github.com/acquia/echogod/echogod"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
)

var discardLogger = *CreateLogger(io.Discard, io.Discard, io.Discard, io.Discard)

// testConfig returns the defaults bound to an ephemeral loopback port.
func testConfig() ConfigValues {
	config, _ := CreateConfig("")
	config.Connection.Host = "127.0.0.1"
	config.Connection.Port = 0
	return config
}

// startSocket opens a socket of the given type and serves it in the
// background. The returned channel receives the result of Listen.
func startSocket(socketType int, config ConfigValues, logger Logger) (Socket, chan error) {
	socket := CreateSocket(socketType, config)
	Expect(socket.Bind(logger)).Should(Succeed())
	done := make(chan error, 1)
	go func() {
		done <- socket.Listen(logger)
	}()
	BlockForSocket(socket, time.Second)
	return socket, done
}

// dialEcho connects to an echo socket and reads past the greeting.
func dialEcho(socket Socket) (net.Conn, []string) {
	conn, err := net.Dial("tcp", socket.GetAddr())
	Expect(err).ShouldNot(HaveOccurred())
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	lines := make([]string, 0, EchoGreetingLines)
	reader := bufio.NewReader(conn)
	for i := 0; i < EchoGreetingLines; i++ {
		line, err := reader.ReadString('\n')
		Expect(err).ShouldNot(HaveOccurred())
		lines = append(lines, line)
	}
	Expect(reader.Buffered()).Should(Equal(0))
	return conn, lines
}

// roundTrip writes the payload and reads back the same number of bytes.
func roundTrip(conn net.Conn, payload []byte) []byte {
	go conn.Write(payload)
	reply := make([]byte, len(payload))
	_, err := io.ReadFull(conn, reply)
	Expect(err).ShouldNot(HaveOccurred())
	return reply
}

var _ = Describe("Sockets", func() {
	var (
		logBuffer  *gbytes.Buffer
		logger     Logger
		echoSocket Socket
		echoDone   chan error
	)

	BeforeEach(func() {
		logBuffer = gbytes.NewBuffer()
		logger = *CreateLogger(io.Discard, logBuffer, logBuffer, logBuffer)
		echoSocket, echoDone = startSocket(SocketTypeEcho, testConfig(), logger)
	})

	AfterEach(func() {
		echoSocket.Close(logger)
		Eventually(echoDone).Should(Receive(BeNil()))
	})

	Describe("Testing the Socket interface", func() {
		It("should contain the required functions", func() {
			_, ok := echoSocket.(interface {
				Bind(logger Logger) error
				Listen(logger Logger) error
				Close(logger Logger)
				Reload(config ConfigValues)
				GetConfig() ConfigValues
				GetAddr() string
				SocketIsActive() bool
			})
			Expect(ok).Should(Equal(true))
		})

		It("should panic for unknown socket types", func() {
			defer GinkgoRecover()
			Expect(func() { CreateSocket(99, testConfig()) }).Should(Panic())
		})

		It("should map modes onto socket types", func() {
			socketType, err := SocketTypeFromMode("greet")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(socketType).Should(Equal(SocketTypeGreet))
			socketType, err = SocketTypeFromMode("echo")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(socketType).Should(Equal(SocketTypeEcho))
			_, err = SocketTypeFromMode("chat")
			Expect(err).Should(HaveOccurred())
		})

		It("should log the startup sequence", func() {
			Eventually(logBuffer).Should(gbytes.Say("bind done"))
			Eventually(logBuffer).Should(gbytes.Say("Waiting for incoming connections"))
		})
	})

	Describe("Testing the bind failures", func() {
		It("should fail to bind a port that is already in use", func() {
			config := testConfig()
			_, port, err := net.SplitHostPort(echoSocket.GetAddr())
			Expect(err).ShouldNot(HaveOccurred())
			fmt.Sscanf(port, "%d", &config.Connection.Port)

			second := CreateSocket(SocketTypeEcho, config)
			err = second.Bind(discardLogger)
			Expect(errors.Is(err, ErrBind)).Should(BeTrue())
			Expect(err.Error()).Should(HavePrefix("bind failed"))
			Expect(second.SocketIsActive()).Should(BeFalse())
		})

		It("should fail to bind without an address", func() {
			socket := &SocketTcp{}
			Expect(errors.Is(socket.Bind(discardLogger), ErrBind)).Should(BeTrue())
			Expect(errors.Is(socket.Listen(discardLogger), ErrBind)).Should(BeTrue())
		})

		It("should fail to bind an invalid port", func() {
			config := testConfig()
			config.Connection.Port = 70000
			socket := CreateSocket(SocketTypeEcho, config)
			Expect(errors.Is(socket.Bind(discardLogger), ErrBind)).Should(BeTrue())
		})
	})

	Describe("Testing the echo functionality", func() {
		It("should greet with three lines", func() {
			conn, lines := dialEcho(echoSocket)
			defer conn.Close()

			config := testConfig()
			Expect(lines).Should(Equal([]string{
				config.Greeting.Assigned + "\n",
				config.Greeting.Handler + "\n",
				config.Greeting.Prompt + "\n",
			}))
			Eventually(logBuffer).Should(gbytes.Say("Connection accepted"))
			Eventually(logBuffer).Should(gbytes.Say("Handler assigned"))
		})

		It("should echo ping back and keep accepting after the client leaves", func() {
			conn, _ := dialEcho(echoSocket)
			Expect(string(roundTrip(conn, []byte("ping")))).Should(Equal("ping"))
			conn.Close()
			Eventually(logBuffer).Should(gbytes.Say("Client disconnected"))

			next, _ := dialEcho(echoSocket)
			defer next.Close()
			Expect(string(roundTrip(next, []byte("ping")))).Should(Equal("ping"))
		})

		It("should return exactly what was sent", func() {
			conn, _ := dialEcho(echoSocket)
			defer conn.Close()

			payloads := []string{
				"a",
				"hello world\n",
				"short",
				strings.Repeat("x", 1999),
				"\xff\xfe binary \x01\x02",
			}
			for _, payload := range payloads {
				Expect(string(roundTrip(conn, []byte(payload)))).Should(Equal(payload))
			}
		})

		It("should echo bursts larger than the read buffer", func() {
			conn, _ := dialEcho(echoSocket)
			defer conn.Close()

			payload := []byte(strings.Repeat("0123456789", 550))
			Expect(roundTrip(conn, payload)).Should(Equal(payload))
		})

		It("should log a disconnect when the client closes straight away", func() {
			conn, _ := dialEcho(echoSocket)
			conn.Close()
			Eventually(logBuffer).Should(gbytes.Say("Client disconnected"))
			Consistently(logBuffer).ShouldNot(gbytes.Say("recv failed"))
		})

		It("should keep concurrent clients apart", func() {
			var wg sync.WaitGroup
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					defer GinkgoRecover()
					conn, _ := dialEcho(echoSocket)
					defer conn.Close()
					for j := 0; j < 50; j++ {
						payload := fmt.Sprintf("client-%d-message-%d", id, j)
						Expect(string(roundTrip(conn, []byte(payload)))).Should(Equal(payload))
					}
				}(i)
			}
			wg.Wait()
		})

		It("should stop listening cleanly when closed", func() {
			socket, done := startSocket(SocketTypeEcho, testConfig(), discardLogger)
			socket.Close(discardLogger)
			Eventually(done).Should(Receive(BeNil()))
		})
	})

	Describe("Testing the greet functionality", func() {
		It("should send one line and hang up", func() {
			socket, done := startSocket(SocketTypeGreet, testConfig(), discardLogger)
			defer func() {
				socket.Close(discardLogger)
				Eventually(done).Should(Receive(BeNil()))
			}()

			for i := 0; i < 3; i++ {
				conn, err := net.Dial("tcp", socket.GetAddr())
				Expect(err).ShouldNot(HaveOccurred())
				conn.SetDeadline(time.Now().Add(5 * time.Second))
				data, err := io.ReadAll(conn)
				conn.Close()
				Expect(err).ShouldNot(HaveOccurred())
				Expect(string(data)).Should(Equal(testConfig().Greeting.Live + "\n"))
			}
		})
	})

	Describe("Testing the reload", func() {
		It("should greet new connections with the reloaded text", func() {
			config := echoSocket.GetConfig()
			config.Greeting.Handler = "Reloaded handler"
			echoSocket.Reload(config)

			conn, lines := dialEcho(echoSocket)
			defer conn.Close()
			Expect(lines[1]).Should(Equal("Reloaded handler\n"))
		})
	})

	Measure("it should echo quickly.", func(b Benchmarker) {
		conn, _ := dialEcho(echoSocket)
		defer conn.Close()
		runtime := b.Time("runtime", func() {
			for i := 0; i < 100; i++ {
				roundTrip(conn, []byte("ping"))
			}
		})

		Expect(runtime.Seconds()).Should(BeNumerically("<", 2), "it should echo quickly.")
	}, 10)
})
