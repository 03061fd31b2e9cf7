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

// Package echogod - This library handles the file-based runtime configuration.
package echogod

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// Server modes accepted in service.mode.
const (
	ModeGreet = "greet"
	ModeEcho  = "echo"
)

// ConfigValues describes the data type that configuration is loaded into. The
// values from the YAML config file map directly to these values. e.g.
//
// connection:
//     host: 0.0.0.0
//     port: 8888
//
// Map to:
// config.Connection.Host = "0.0.0.0"
// config.Connection.Port = 8888
//
// INI files use one section per group ([connection], [greeting], ...) with
// the same lower case key names.
//
// All values specified in the ConfigValues struct should also have a default
// value set in LoadFile() to ensure a safe runtime environment.
type ConfigValues struct {
	Service struct {
		Name string
		Mode string
	}
	Connection struct {
		Host    string
		Port    int
		Backlog int
		Buffer  int
		Timeout time.Duration
	}
	Greeting struct {
		Live     string
		Assigned string
		Handler  string
		Prompt   string
	}
	Echo struct {
		Legacy bool
	}
	Debug struct {
		Verbose bool
	}
}

// CreateConfig is a factory for creating ConfigValues.
func CreateConfig(filePath string) (ConfigValues, error) {
	config := new(ConfigValues)
	err := config.LoadFile(filePath)
	return *config, err
}

// LoadFile will read configuration from a specified file.
func (config *ConfigValues) LoadFile(filePath string) error {
	var err error

	// Establish all of the default values.

	// Service
	config.Service.Name = "echogod"
	config.Service.Mode = ModeEcho

	// Connection
	config.Connection.Host = "0.0.0.0"
	config.Connection.Port = 8888
	config.Connection.Backlog = 3
	config.Connection.Buffer = 2000
	config.Connection.Timeout = 0

	// Greeting
	config.Greeting.Live = "Hello Client , I have received your connection. But I have to go now, bye"
	config.Greeting.Assigned = "Hello Client , I have received your connection. And now I will assign a handler for you"
	config.Greeting.Handler = "Greetings! I am your connection handler"
	config.Greeting.Prompt = "Now type something and i shall repeat what you type "

	// Echo
	config.Echo.Legacy = false

	// Debug
	config.Debug.Verbose = false

	// Attempt to read in the file.
	if filePath != "" {
		if strings.EqualFold(filepath.Ext(filePath), ".ini") {
			err = config.loadIni(filePath)
		} else {
			err = config.loadYaml(filePath)
		}
	}

	// A zero or negative buffer would make every read return immediately.
	if config.Connection.Buffer <= 0 {
		config.Connection.Buffer = 2000
	}
	if config.Connection.Backlog <= 0 {
		config.Connection.Backlog = 3
	}

	return err
}

func (config *ConfigValues) loadYaml(filePath string) error {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return fmt.Errorf("could not parse %s: %w", filePath, err)
	}
	return nil
}

func (config *ConfigValues) loadIni(filePath string) error {
	iniFile, err := ini.InsensitiveLoad(filePath)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(config); err != nil {
		return fmt.Errorf("could not parse %s: %w", filePath, err)
	}
	return nil
}

// GetAddr builds the host:port string the listener binds to.
func (config *ConfigValues) GetAddr() string {
	return fmt.Sprintf("%s:%d", config.Connection.Host, config.Connection.Port)
}
