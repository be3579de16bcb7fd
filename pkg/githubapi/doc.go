/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubapi implements changestatus.Client on top of go-github.
//
// Clients are opened through a Factory, which authenticates with either
// basic auth or an access token and talks to github.com or a GitHub
// Enterprise server depending on the server URL:
//
//	f := &githubapi.Factory{}
//	client, err := f.OpenForToken("https://api.github.com", token)
//
// Every client is built on the transport returned by NewTransport, which pauses
// and retries requests when GitHub reports a rate limit and exports request
// metrics to prometheus.
package githubapi
