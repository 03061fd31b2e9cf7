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

// Package main is a load tester that checks an echo server returns exactly
// what it is sent.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acquia/echogod/echogod"
	"github.com/jmcvetta/randutil"
)

var host = flag.String("host", "localhost", "Echo server hostname.")
var port = flag.Int("port", 8888, "Echo server TCP port.")
var poolCount = flag.Int("poolCount", 5, "How many active connections to maintain.")
var concurrency = flag.Int("concurrency", 1, "How many concurrent senders to run.")
var maxPayload = flag.Int("maxPayload", 1999, "Largest payload to send, in bytes.")
var runTime = flag.Duration("runTime", 30*time.Second, "How long to run the test.")
var timeout = flag.Duration("timeout", 10*time.Second, "Connection and read timeout.")
var logSent = flag.Bool("logSent", false, "Log each payload sent.")

// Track round trips/errors.
var (
	roundTripCount int64
	mismatchCount  int64
	errorCount     int64
)

var logger = *echogod.CreateLogger(io.Discard, os.Stdout, os.Stdout, os.Stderr)

func main() {
	flag.Parse()
	fmt.Printf("Starting test with %d senders over %d connections for %s.\n", *concurrency, *poolCount, *runTime)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	pool, err := echogod.CreateConnectionPool(*poolCount, addr, echogod.EchoGreetingLines, *timeout, logger)
	if err != nil {
		logger.Error.Println("Could not fill the connection pool.", err)
		os.Exit(1)
	}

	startTime := time.Now()
	finishChannel := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendPayloads(pool, finishChannel)
		}()
	}

	time.Sleep(*runTime)
	close(finishChannel)
	wg.Wait()

	printResults(time.Since(startTime), pool.ErrorCount())
}

// sendPayloads keeps sending random payloads until told to finish.
func sendPayloads(pool *echogod.ConnectionPool, finishChannel chan struct{}) {
	for {
		select {
		case <-finishChannel:
			return
		default:
			sendPayload(pool)
		}
	}
}

// sendPayload sends one random payload on a pooled connection and checks the
// echo.
func sendPayload(pool *echogod.ConnectionPool) {
	size, _ := randutil.IntRange(1, *maxPayload+1)
	payload, err := randutil.String(size, randutil.Alphanumeric)
	if err != nil {
		atomic.AddInt64(&errorCount, 1)
		return
	}

	conn, err := pool.GetConnection(logger)
	if err != nil {
		atomic.AddInt64(&errorCount, 1)
		return
	}

	atomic.AddInt64(&roundTripCount, 1)
	if _, err := conn.Write([]byte(payload)); err != nil {
		atomic.AddInt64(&errorCount, 1)
		pool.ReleaseConnection(conn, true, logger)
		return
	}

	reply := make([]byte, len(payload))
	if _, err := io.ReadFull(conn, reply); err != nil {
		atomic.AddInt64(&errorCount, 1)
		pool.ReleaseConnection(conn, true, logger)
		return
	}

	if !bytes.Equal(reply, []byte(payload)) {
		atomic.AddInt64(&mismatchCount, 1)
		pool.ReleaseConnection(conn, true, logger)
		return
	}
	if *logSent {
		fmt.Printf("%s\n", payload)
	}
	pool.ReleaseConnection(conn, false, logger)
}

// printResults prints the output in a human-readable format.
func printResults(totalTime time.Duration, connErrors int64) {
	total := atomic.LoadInt64(&roundTripCount)
	errors := atomic.LoadInt64(&errorCount)
	mismatches := atomic.LoadInt64(&mismatchCount)
	rate := float64(total-errors-mismatches) / totalTime.Seconds()
	fmt.Printf("\nRound trips: %d\nErrors: %d\nMismatches: %d\nConnection errors: %d\nReq/sec: %.1f\n",
		total, errors, mismatches, connErrors, rate)
}
