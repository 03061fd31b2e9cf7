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

// Package echogod - This library reacts to process signals.
package echogod

import (
	"os"
	"os/signal"
	"syscall"
)

// ListenForSignals will listen for quit/reload signals and respond accordingly.
func ListenForSignals(finishChannel chan int, socket Socket, configFile *string, logger Logger) {
	// For signal handling we catch several signals. ABRT, INT, TERM and QUIT
	// are all used to clean up and stop the process. HUP is used to signal
	// a configuration reload without stopping the process.
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel,
		syscall.SIGABRT,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		for {
			s := <-signalChannel
			logger.Info.Printf("Processed signal %v", s)

			switch s {
			case syscall.SIGHUP:
				// The listening address stays as it is, only the greetings and
				// echo options change for new connections.
				logger.Info.Printf("Loading config changes from %s", *configFile)
				config, err := CreateConfig(*configFile)
				if err != nil {
					logger.Error.Println("Could not reload config.", err)
					continue
				}
				socket.Reload(config)
			default:
				finishChannel <- 1
			}
		}
	}()
}
