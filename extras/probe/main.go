/**
 * Copyright 2015 Acquia, Inc.
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

// Package main connects to an echogod server and prints what it sends.
package main

/**
 * Probe used to check the greeting of a running server in either mode.
 */

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"
)

var addr = flag.String("addr", "localhost:8888", "Server address.")
var wait = flag.Duration("wait", 2*time.Second, "How long to wait for data.")

func main() {
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, *wait)
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(*wait))

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fmt.Printf("%q\n", line)
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				fmt.Printf("Connection to %v still open after %s.\n", conn.RemoteAddr(), *wait)
			} else {
				fmt.Printf("Connection to %v closed: %v\n", conn.RemoteAddr(), err)
			}
			return
		}
	}
}
