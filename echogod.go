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

/**
 * Package main: echogod is a small TCP server. In greet mode it sends every
 * client a single line and hangs up, in echo mode it hands each client to
 * its own handler which repeats back whatever the client sends.
 */
package main

import (
	"flag"
	"io"
	"os"

	"github.com/acquia/echogod/echogod"
)

// CLI flags.
var configFile = flag.String("config", "/etc/echogod/config.yml", "YAML or INI config file path")
var mode = flag.String("mode", "", "Server mode, greet or echo. Overrides service.mode when set.")

func main() {
	// Load command line options.
	flag.Parse()

	os.Exit(run(*configFile, *mode, os.Stdout, os.Stderr))
}

// run starts the server and blocks until it stops, returning the process
// exit status.
func run(configPath string, modeOverride string, stdout io.Writer, stderr io.Writer) int {
	// Load the config, falling back to the defaults.
	config, configErr := echogod.CreateConfig(configPath)

	// Set up the logger based on the configuration.
	var logger echogod.Logger
	if config.Debug.Verbose {
		logger = *echogod.CreateLogger(stdout, stdout, stdout, stderr)
		logger.Info.Println("Debugging mode enabled")
		logger.Info.Printf("Loaded Config: %v", config)
	} else {
		logger = *echogod.CreateLogger(io.Discard, stdout, stdout, stderr)
	}
	if configErr != nil {
		logger.Warning.Println("Could not load config, using defaults.", configErr)
	}

	if modeOverride != "" {
		config.Service.Mode = modeOverride
	}
	socketType, err := echogod.SocketTypeFromMode(config.Service.Mode)
	if err != nil {
		logger.Error.Println(err)
		return 1
	}

	socket := echogod.CreateSocket(socketType, config)
	if err := socket.Bind(logger); err != nil {
		logger.Error.Println(err)
		return 1
	}

	// Accept connections in the background so that signals can stop us.
	listenChannel := make(chan error, 1)
	go func() {
		listenChannel <- socket.Listen(logger)
	}()

	// Listen for OS signals.
	finishChannel := make(chan int)
	echogod.ListenForSignals(finishChannel, socket, &configPath, logger)

	select {
	case <-finishChannel:
		logger.Info.Println("Exiting program.")
		socket.Close(logger)
		<-listenChannel
		return 0
	case err := <-listenChannel:
		if err != nil {
			logger.Error.Println(err)
			return 1
		}
		return 0
	}
}
