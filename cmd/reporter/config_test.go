/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"

	"github.com/chainguard-dev/teamcity-github-status/pkg/changestatus"
)

func process(t *testing.T, vars map[string]string) (envConfig, error) {
	t.Helper()
	var env envConfig
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &env,
		Lookuper: envconfig.MapLookuper(vars),
	})
	return env, err
}

func TestEnvConfig(t *testing.T) {
	env, err := process(t, map[string]string{
		"TEAMCITY_ROOT_URL": "https://tc.example.com",
		"GITHUB_TOKEN":      "s3cr3t",
		"GITHUB_OWNER":      "octo",
		"GITHUB_REPO":       "hello",
		"GITHUB_COMMENTS":   "true",
		"GITHUB_REPORT_ON":  "finish",
	})
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}

	if env.Port != 8080 || env.Concurrency != 4 || env.Backlog != 100 {
		t.Errorf("defaults = port %d, concurrency %d, backlog %d", env.Port, env.Concurrency, env.Backlog)
	}

	want := map[string]string{
		changestatus.ServerKey:             "https://api.github.com/",
		changestatus.AuthenticationTypeKey: "token",
		changestatus.UserNameKey:           "",
		changestatus.PasswordKey:           "",
		changestatus.AccessTokenKey:        "s3cr3t",
		changestatus.RepositoryOwnerKey:    "octo",
		changestatus.RepositoryNameKey:     "hello",
		changestatus.ContextKey:            "",
		changestatus.UseCommentsKey:        "true",
		changestatus.UseGuestURLsKey:       "",
		changestatus.ReportOnKey:           "finish",
	}
	desc := env.GitHub.descriptor()
	if diff := cmp.Diff(want, desc.Parameters); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	feature, err := changestatus.ParseFeature(desc)
	if err != nil {
		t.Fatalf("ParseFeature() = %v", err)
	}
	if !feature.AddComments || feature.UseGuestURLs || feature.ReportOn != changestatus.OnFinish {
		t.Errorf("feature = %+v", feature)
	}
}

func TestEnvConfig_Required(t *testing.T) {
	if _, err := process(t, map[string]string{
		"GITHUB_OWNER": "octo",
		"GITHUB_REPO":  "hello",
	}); err == nil {
		t.Error("Process() without TEAMCITY_ROOT_URL succeeded")
	}
}

func TestEnvConfig_InvalidFeature(t *testing.T) {
	env, err := process(t, map[string]string{
		"TEAMCITY_ROOT_URL": "https://tc.example.com",
		"GITHUB_AUTH_TYPE":  "password",
		"GITHUB_OWNER":      "octo",
		"GITHUB_REPO":       "hello",
	})
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}

	_, err = changestatus.ParseFeature(env.GitHub.descriptor())
	var cerr *changestatus.ConfigError
	if !errors.As(err, &cerr) || cerr.Key != changestatus.UserNameKey {
		t.Errorf("ParseFeature() = %v, want missing username", err)
	}
}
