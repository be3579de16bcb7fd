/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"errors"
	"fmt"
	"strings"
)

// FeatureType is the build feature type handled by this package.
const FeatureType = "teamcity.github.status"

// Feature parameter keys. The "guthub" spelling is what existing build
// configurations store, so it is kept.
const (
	ServerKey             = "guthub_host"
	AuthenticationTypeKey = "github_authentication_type"
	UserNameKey           = "guthub_username"
	PasswordKey           = "secure:guthub_password"
	AccessTokenKey        = "secure:github_access_token"
	RepositoryOwnerKey    = "guthub_owner"
	RepositoryNameKey     = "guthub_repo"
	ContextKey            = "guthub_context"
	UseCommentsKey        = "guthub_comments"
	UseGuestURLsKey       = "guthub_guest"
	ReportOnKey           = "github_report_on"
)

// ErrInvalidConfiguration is wrapped by every configuration error.
var ErrInvalidConfiguration = errors.New("invalid github status configuration")

// ConfigError describes a rejected feature parameter.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: parameter %q: %s", ErrInvalidConfiguration, e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// FeatureDescriptor is a configured build feature.
type FeatureDescriptor struct {
	Type       string
	Parameters map[string]string
}

// AuthenticationType selects how the client authenticates.
type AuthenticationType string

const (
	PasswordAuth AuthenticationType = "password"
	TokenAuth    AuthenticationType = "token"
)

// ParseAuthenticationType parses the authentication type parameter.
func ParseAuthenticationType(s string) (AuthenticationType, error) {
	switch t := AuthenticationType(strings.TrimSpace(s)); t {
	case PasswordAuth, TokenAuth:
		return t, nil
	default:
		return "", fmt.Errorf("unknown authentication type %q", s)
	}
}

// Credentials opens a client for a server. It is either PasswordCredentials
// or TokenCredentials.
type Credentials interface {
	Type() AuthenticationType
	open(f ClientFactory, serverURL string) (Client, error)
}

// PasswordCredentials authenticate with username and password.
type PasswordCredentials struct {
	Username string
	Password string
}

func (PasswordCredentials) Type() AuthenticationType { return PasswordAuth }

func (c PasswordCredentials) open(f ClientFactory, serverURL string) (Client, error) {
	return f.OpenForUser(serverURL, c.Username, c.Password)
}

// TokenCredentials authenticate with an access token.
type TokenCredentials struct {
	Token string
}

func (TokenCredentials) Type() AuthenticationType { return TokenAuth }

func (c TokenCredentials) open(f ClientFactory, serverURL string) (Client, error) {
	return f.OpenForToken(serverURL, c.Token)
}

// Feature is a validated feature configuration.
type Feature struct {
	ServerURL    string
	Credentials  Credentials
	Target       Target
	AddComments  bool
	UseGuestURLs bool
	ReportOn     ReportEvent
}

// ParseFeature validates the descriptor's parameters.
func ParseFeature(desc FeatureDescriptor) (*Feature, error) {
	if desc.Type != FeatureType {
		return nil, &ConfigError{Key: "type", Reason: fmt.Sprintf("unexpected feature type %q", desc.Type)}
	}
	p := desc.Parameters

	server := strings.TrimSpace(p[ServerKey])
	if server == "" {
		return nil, &ConfigError{Key: ServerKey, Reason: "failed to read GitHub URL from the feature settings"}
	}

	authType, err := ParseAuthenticationType(p[AuthenticationTypeKey])
	if err != nil {
		return nil, &ConfigError{Key: AuthenticationTypeKey, Reason: err.Error()}
	}

	var creds Credentials
	switch authType {
	case PasswordAuth:
		if isBlank(p[UserNameKey]) {
			return nil, &ConfigError{Key: UserNameKey, Reason: "username is required for password authentication"}
		}
		creds = PasswordCredentials{Username: p[UserNameKey], Password: p[PasswordKey]}
	case TokenAuth:
		if isBlank(p[AccessTokenKey]) {
			return nil, &ConfigError{Key: AccessTokenKey, Reason: "access token is required for token authentication"}
		}
		creds = TokenCredentials{Token: p[AccessTokenKey]}
	}

	owner, repo := strings.TrimSpace(p[RepositoryOwnerKey]), strings.TrimSpace(p[RepositoryNameKey])
	if owner == "" {
		return nil, &ConfigError{Key: RepositoryOwnerKey, Reason: "repository owner is required"}
	}
	if repo == "" {
		return nil, &ConfigError{Key: RepositoryNameKey, Reason: "repository name is required"}
	}

	reportOn, err := ParseReportEvent(p[ReportOnKey])
	if err != nil {
		return nil, &ConfigError{Key: ReportOnKey, Reason: err.Error()}
	}

	return &Feature{
		ServerURL:   server,
		Credentials: creds,
		Target: Target{
			Owner:   owner,
			Repo:    repo,
			Context: strings.TrimSpace(p[ContextKey]),
		},
		AddComments:  !isBlank(p[UseCommentsKey]),
		UseGuestURLs: !isBlank(p[UseGuestURLsKey]),
		ReportOn:     reportOn,
	}, nil
}

// Open opens the feature's client with the given factory.
func (f *Feature) Open(factory ClientFactory) (Client, error) {
	client, err := f.Credentials.open(factory, f.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("opening %s client for %s: %w", f.Credentials.Type(), f.ServerURL, err)
	}
	return client, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
