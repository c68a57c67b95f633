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

// Package upgrade provides a facility to check for a newer release
package upgrade

import (
	gocontext "context"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/github"
	"github.com/nickustinov/itsypad/pkg/cli/consts"
	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/database"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/pkg/errors"
)

const (
	repoOwner = "nickustinov"
	repoName  = "itsypad"

	// upgradeInterval is the minimum seconds between upgrade checks
	upgradeInterval = 86400 * 7
)

func shouldCheckUpdate(ctx context.PadCtx) (bool, error) {
	var lastUpgrade int64
	if err := database.GetSystem(ctx.DB, consts.SystemLastUpgrade, &lastUpgrade); err != nil {
		return false, errors.Wrap(err, "getting last upgrade timestamp")
	}

	now := time.Now().Unix()

	return now-lastUpgrade > upgradeInterval, nil
}

func touchLastUpgrade(ctx context.PadCtx) error {
	now := time.Now().Unix()
	if err := database.UpsertSystem(ctx.DB, consts.SystemLastUpgrade, strconv.FormatInt(now, 10)); err != nil {
		return errors.Wrap(err, "updating last upgrade timestamp")
	}

	return nil
}

func fetchLatestStableTag() (string, error) {
	client := github.NewClient(nil)

	release, _, err := client.Repositories.GetLatestRelease(gocontext.Background(), repoOwner, repoName)
	if err != nil {
		return "", errors.Wrap(err, "fetching latest release")
	}

	return release.GetTagName(), nil
}

// parseVersion parses a semver tag like v1.2.3 into comparable parts
func parseVersion(tag string) ([3]int, error) {
	var ret [3]int

	tag = strings.TrimPrefix(tag, "v")
	parts := strings.SplitN(tag, ".", 3)
	if len(parts) != 3 {
		return ret, errors.Errorf("unexpected version format %s", tag)
	}

	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return ret, errors.Wrapf(err, "parsing version segment %s", part)
		}
		ret[i] = n
	}

	return ret, nil
}

func isNewer(latest, current string) (bool, error) {
	l, err := parseVersion(latest)
	if err != nil {
		return false, errors.Wrap(err, "parsing latest version")
	}
	c, err := parseVersion(current)
	if err != nil {
		return false, errors.Wrap(err, "parsing current version")
	}

	for i := 0; i < 3; i++ {
		if l[i] != c[i] {
			return l[i] > c[i], nil
		}
	}

	return false, nil
}

// Check notifies the user if a newer release exists. It runs at most once
// per upgradeInterval and stays quiet on the happy path.
func Check(ctx context.PadCtx) error {
	if !ctx.EnableUpgradeCheck {
		return nil
	}

	ok, err := shouldCheckUpdate(ctx)
	if err != nil {
		return errors.Wrap(err, "checking if upgrade check is due")
	}
	if !ok {
		return nil
	}

	if err := touchLastUpgrade(ctx); err != nil {
		return errors.Wrap(err, "recording upgrade check")
	}

	latest, err := fetchLatestStableTag()
	if err != nil {
		return errors.Wrap(err, "fetching latest version")
	}

	newer, err := isNewer(latest, ctx.Version)
	if err != nil {
		// An unparsable local version happens on development builds
		log.Debug("comparing versions: %v\n", err)
		return nil
	}

	if newer {
		log.Infof("a newer version %s is available. Please upgrade.\n", latest)
	}

	return nil
}
