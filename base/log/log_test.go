// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLogger(t *testing.T) {
	temp := t.TempDir()
	path := filepath.Join(temp, "latent.log")
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	assert.NoError(t, flagSet.Parse([]string{"--log-path", path}))

	SetLogger(flagSet, false)
	Logger().Info("hello")
	_ = Logger().Sync()
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	SetLogger(flagSet, true)
	Logger().Debug("debug message")
	_ = Logger().Sync()
	data, err = os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "debug message")
}

func TestSetLoggerWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	defer func(w zapcore.WriteSyncer) { console = w }(console)
	console = zapcore.AddSync(&buf)

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	assert.NoError(t, flagSet.Parse(nil))
	SetLogger(flagSet, false)
	Logger().Info("console only")
	assert.Contains(t, buf.String(), "console only")
}

func TestCloseLogger(t *testing.T) {
	CloseLogger()
	assert.False(t, Logger().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Logger().Core().Enabled(zapcore.FatalLevel))
}
