/* Copyright 2025 Itsypad Authors
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

package config

import (
	"fmt"
	"os"

	"github.com/nickustinov/itsypad/pkg/cli/consts"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Sync transport names accepted in the syncTransport field
const (
	TransportBlob   = "blob"
	TransportRecord = "record"
)

// Config holds itsypad configuration
type Config struct {
	Editor             string `yaml:"editor"`
	APIEndpoint        string `yaml:"apiEndpoint"`
	EnableUpgradeCheck bool   `yaml:"enableUpgradeCheck"`
	SyncTransport      string `yaml:"syncTransport"`
	SyncIntervalMin    int    `yaml:"syncIntervalMin"`
}

// GetPath returns the path to the itsypad config file
func GetPath(ctx context.PadCtx) string {
	return fmt.Sprintf("%s/%s/%s", ctx.Paths.Config, consts.ItsypadDirName, consts.ConfigFilename)
}

// Read reads the config file
func Read(ctx context.PadCtx) (Config, error) {
	var ret Config

	configPath := GetPath(ctx)
	b, err := os.ReadFile(configPath)
	if err != nil {
		return ret, errors.Wrap(err, "reading config file")
	}

	err = yaml.Unmarshal(b, &ret)
	if err != nil {
		return ret, errors.Wrap(err, "unmarshalling config")
	}

	if ret.SyncTransport == "" {
		ret.SyncTransport = TransportBlob
	}

	return ret, nil
}

// Write writes the config to the config file
func Write(ctx context.PadCtx, cf Config) error {
	path := GetPath(ctx)

	b, err := yaml.Marshal(cf)
	if err != nil {
		return errors.Wrap(err, "marshalling config into YAML")
	}

	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.Wrap(err, "writing the config file")
	}

	return nil
}
