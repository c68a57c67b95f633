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

// Package testutils provides utilities used in tests
package testutils

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/nickustinov/itsypad/pkg/cli/consts"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/pkg/errors"
)

// Prompts for user input
const (
	PromptCloseTab = "close tab"
)

// Timeout for waiting for prompts in tests
const promptTimeout = 10 * time.Second

// Login simulates a logged in user by inserting an access key in the local database
func Login(t *testing.T, ctx *context.PadCtx) {
	db := ctx.DB

	database.MustExec(t, "inserting sessionKey", db, "INSERT INTO system (key, value) VALUES (?, ?)", consts.SystemSessionKey, "someAccessKey")

	ctx.SessionKey = "someAccessKey"
}

// RemoveDir cleans up the test env represented by the given context
func RemoveDir(t *testing.T, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(errors.Wrap(err, "removing the directory"))
	}
}

// NewItsypadCmd returns a new itsypad command and pointers to its stderr and stdout
func NewItsypadCmd(opts RunItsypadCmdOptions, binaryPath string, arg ...string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	var stderr, stdout bytes.Buffer

	cmd := exec.Command(binaryPath, arg...)
	cmd.Stderr = &stderr
	cmd.Stdout = &stdout

	cmd.Env = opts.Env

	return cmd, &stderr, &stdout
}

// RunItsypadCmdOptions is an option for RunItsypadCmd
type RunItsypadCmdOptions struct {
	Env []string
}

// RunItsypadCmd runs an itsypad command
func RunItsypadCmd(t *testing.T, opts RunItsypadCmdOptions, binaryPath string, arg ...string) {
	t.Logf("running: %s %s", binaryPath, strings.Join(arg, " "))

	cmd, stderr, stdout := NewItsypadCmd(opts, binaryPath, arg...)
	cmd.Env = append(cmd.Env, "ITSYPAD_DEBUG=1")

	if err := cmd.Run(); err != nil {
		t.Logf("\n%s", stdout)
		t.Fatal(errors.Wrapf(err, "running command %s", stderr.String()))
	}

	// Print stdout if and only if test fails later
	t.Logf("\n%s", stdout)
}

// WaitItsypadCmd runs an itsypad command and passes its stdout and stdin to the callback.
func WaitItsypadCmd(t *testing.T, opts RunItsypadCmdOptions, runFunc func(io.Reader, io.WriteCloser) error, binaryPath string, arg ...string) (string, error) {
	t.Logf("running: %s %s", binaryPath, strings.Join(arg, " "))

	cmd := exec.Command(binaryPath, arg...)
	cmd.Env = opts.Env

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", errors.Wrap(err, "getting stdout pipe")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", errors.Wrap(err, "getting stdin")
	}
	defer stdin.Close()

	if err = cmd.Start(); err != nil {
		return "", errors.Wrap(err, "starting command")
	}

	var output bytes.Buffer
	tee := io.TeeReader(stdout, &output)

	err = runFunc(tee, stdin)
	if err != nil {
		t.Logf("\n%s", output.String())
		return output.String(), errors.Wrap(err, "running callback")
	}

	io.Copy(&output, stdout)

	if err := cmd.Wait(); err != nil {
		t.Logf("\n%s", output.String())
		return output.String(), errors.Wrapf(err, "command failed: %s", stderr.String())
	}

	t.Logf("\n%s", output.String())
	return output.String(), nil
}

// MustWaitItsypadCmd is like WaitItsypadCmd but fails the test on error.
func MustWaitItsypadCmd(t *testing.T, opts RunItsypadCmdOptions, runFunc func(io.Reader, io.WriteCloser) error, binaryPath string, arg ...string) string {
	output, err := WaitItsypadCmd(t, opts, runFunc, binaryPath, arg...)
	if err != nil {
		t.Fatal(err)
	}

	return output
}

// waitForPrompt waits for an expected prompt to appear in stdout with a timeout.
// Returns an error if the prompt is not found within the timeout period.
// Handles prompts with or without newlines by reading character by character.
func waitForPrompt(stdout io.Reader, expectedPrompt string, timeout time.Duration) error {
	type result struct {
		found bool
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		reader := bufio.NewReader(stdout)
		var buffer strings.Builder
		found := false

		for {
			b, err := reader.ReadByte()
			if err != nil {
				resultCh <- result{found: found, err: err}
				return
			}

			buffer.WriteByte(b)
			if strings.Contains(buffer.String(), expectedPrompt) {
				found = true
				break
			}
		}

		resultCh <- result{found: found, err: nil}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil && res.err != io.EOF {
			return errors.Wrap(res.err, "reading stdout")
		}
		if !res.found {
			return errors.Errorf("expected prompt '%s' not found in stdout", expectedPrompt)
		}
		return nil
	case <-time.After(timeout):
		return errors.Errorf("timeout waiting for prompt '%s'", expectedPrompt)
	}
}

// userRespondToPrompt is a helper that waits for a prompt and sends a response.
func userRespondToPrompt(stdout io.Reader, stdin io.WriteCloser, expectedPrompt, response, action string) error {
	if err := waitForPrompt(stdout, expectedPrompt, promptTimeout); err != nil {
		return err
	}

	if _, err := io.WriteString(stdin, response); err != nil {
		return errors.Wrapf(err, "indicating %s in stdin", action)
	}

	return nil
}

// ConfirmCloseTab waits for the prompt for closing a tab and confirms.
func ConfirmCloseTab(stdout io.Reader, stdin io.WriteCloser) error {
	return userRespondToPrompt(stdout, stdin, PromptCloseTab, "y\n", "confirmation")
}

// CancelCloseTab waits for the prompt for closing a tab and cancels.
func CancelCloseTab(stdout io.Reader, stdin io.WriteCloser) error {
	return userRespondToPrompt(stdout, stdin, PromptCloseTab, "n\n", "cancellation")
}
