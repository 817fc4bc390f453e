// Package awscli adapts the installed aws CLI binary for the diagnostic
// and repair services. All profile discovery, credential resolution, and
// configuration writes go through aws subprocesses so this module never
// parses or writes the shared config/credentials file formats itself.
package awscli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/enri3l/aws-ts-sub005/internal/telemetry"
)

// CommandRunner executes a command and returns stdout bytes. The name and
// args specify the command; ctx bounds its lifetime.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommandRunner returns a CommandRunner that uses os/exec to run
// commands. Captures stdout for parsing and stderr for error diagnostics.
// When the command is "aws", records telemetry (duration, status, stderr).
func ExecCommandRunner() CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		start := time.Now()
		cmd := exec.CommandContext(ctx, name, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if name == "aws" {
			telemetry.RecordAwsCall(ctx,
				args, float64(time.Since(start).Milliseconds()),
				err, stderr.String())
		}
		if err != nil && stderr.Len() > 0 {
			return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return out, err
	}
}

// ProfileStore supplies profile discovery and per-profile config values.
type ProfileStore interface {
	// Profiles returns all configured profile names.
	Profiles(ctx context.Context) ([]string, error)
	// Get returns the value of a config key for a profile. A key that is
	// not set returns ("", nil).
	Get(ctx context.Context, profile, key string) (string, error)
}

// ConfigWriter mutates per-profile config values.
type ConfigWriter interface {
	// Set writes a config key for a profile, creating the profile section
	// when absent.
	Set(ctx context.Context, profile, key, value string) error
}

// Identity is the caller identity reported by STS.
type Identity struct {
	Account string `json:"Account"`
	Arn     string `json:"Arn"`
	UserID  string `json:"UserId"`
}

// CredentialValidator checks that a profile's credentials are accepted by AWS.
type CredentialValidator interface {
	// Identity resolves and validates the profile's credentials against
	// STS and returns the caller identity.
	Identity(ctx context.Context, profile string) (Identity, error)
}

// TokenInspector reports credential expiry for a profile.
type TokenInspector interface {
	// Expiration returns the credential expiration time for the profile.
	// The bool is false when the credentials do not expire (static keys).
	// An error means credentials could not be resolved at all.
	Expiration(ctx context.Context, profile string) (time.Time, bool, error)
}

// CLI implements the collaborator interfaces by shelling out to the aws
// binary (AWS CLI v2).
type CLI struct {
	runner  CommandRunner
	timeout time.Duration // per-call ceiling; 0 = no limit
}

// New creates a CLI using the given runner. timeout bounds each subprocess
// call; pass 0 to disable.
func New(runner CommandRunner, timeout time.Duration) *CLI {
	return &CLI{runner: runner, timeout: timeout}
}

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.runner(ctx, "aws", args...)
}

// Version returns the installed aws CLI version string.
func (c *CLI) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("aws --version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Profiles returns all configured profile names via
// "aws configure list-profiles".
func (c *CLI) Profiles(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "configure", "list-profiles")
	if err != nil {
		return nil, fmt.Errorf("aws configure list-profiles: %w", err)
	}
	var profiles []string
	for _, line := range strings.Split(string(out), "\n") {
		if p := strings.TrimSpace(line); p != "" {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// Get returns the value of a config key for a profile via
// "aws configure get". An unset key exits non-zero with no output — that
// is reported as ("", nil), not an error.
func (c *CLI) Get(ctx context.Context, profile, key string) (string, error) {
	out, err := c.run(ctx, "configure", "get", key, "--profile", profile)
	if err != nil {
		if len(bytes.TrimSpace(out)) == 0 && isExitError(err) {
			return "", nil
		}
		return "", fmt.Errorf("aws configure get %s: %w", key, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Set writes a config key for a profile via "aws configure set".
func (c *CLI) Set(ctx context.Context, profile, key, value string) error {
	if _, err := c.run(ctx, "configure", "set", key, value, "--profile", profile); err != nil {
		return fmt.Errorf("aws configure set %s: %w", key, err)
	}
	return nil
}

// Identity validates the profile's credentials via
// "aws sts get-caller-identity" and returns the caller identity.
func (c *CLI) Identity(ctx context.Context, profile string) (Identity, error) {
	out, err := c.run(ctx, "sts", "get-caller-identity", "--output", "json", "--profile", profile)
	if err != nil {
		return Identity{}, fmt.Errorf("aws sts get-caller-identity: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(out, &id); err != nil {
		return Identity{}, fmt.Errorf("parsing caller identity: %w", err)
	}
	return id, nil
}

// exportedCredentials is the subset of "aws configure export-credentials"
// output we care about.
type exportedCredentials struct {
	Expiration string `json:"Expiration"`
}

// Expiration resolves the profile's credentials via
// "aws configure export-credentials" and reports their expiry. Static
// credentials have no expiration and return (zero, false, nil).
func (c *CLI) Expiration(ctx context.Context, profile string) (time.Time, bool, error) {
	out, err := c.run(ctx, "configure", "export-credentials", "--profile", profile, "--format", "process")
	if err != nil {
		return time.Time{}, false, fmt.Errorf("aws configure export-credentials: %w", err)
	}
	var creds exportedCredentials
	if err := json.Unmarshal(out, &creds); err != nil {
		return time.Time{}, false, fmt.Errorf("parsing exported credentials: %w", err)
	}
	if creds.Expiration == "" {
		return time.Time{}, false, nil
	}
	exp, err := time.Parse(time.RFC3339, creds.Expiration)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing credential expiration %q: %w", creds.Expiration, err)
	}
	return exp, true, nil
}

// SSOLogin starts an SSO login flow for the profile. The aws CLI opens the
// browser and blocks until the flow completes, so this is only invoked
// from interactive repairs.
func (c *CLI) SSOLogin(ctx context.Context, profile string) error {
	if _, err := c.runner(ctx, "aws", "sso", "login", "--profile", profile); err != nil {
		return fmt.Errorf("aws sso login: %w", err)
	}
	return nil
}

// isExitError reports whether err is a subprocess non-zero exit, as
// opposed to a spawn failure or context cancellation.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

var (
	_ ProfileStore        = (*CLI)(nil)
	_ ConfigWriter        = (*CLI)(nil)
	_ CredentialValidator = (*CLI)(nil)
	_ TokenInspector      = (*CLI)(nil)
)
