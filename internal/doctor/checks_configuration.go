package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/enri3l/aws-ts-sub005/internal/awscli"
	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

// ConfigFileCheck verifies the shared AWS config file exists and loads.
type ConfigFileCheck struct {
	fs    fsys.FS
	path  string
	store awscli.ProfileStore
}

// NewConfigFileCheck creates the config file check. path is the shared
// config file location (usually ~/.aws/config).
func NewConfigFileCheck(fs fsys.FS, path string, store awscli.ProfileStore) *ConfigFileCheck {
	return &ConfigFileCheck{fs: fs, path: path, store: store}
}

// ID returns the check identifier.
func (c *ConfigFileCheck) ID() string { return "config-file" }

// Name returns the check name.
func (c *ConfigFileCheck) Name() string { return "Config file" }

// Description explains what the check verifies.
func (c *ConfigFileCheck) Description() string {
	return "verifies the shared AWS config file exists and is loadable"
}

// Stage returns the check's stage.
func (c *ConfigFileCheck) Stage() Stage { return StageConfiguration }

// Execute stats the config file and lists profiles to prove it parses.
func (c *ConfigFileCheck) Execute(ctx context.Context, _ *Context) (*Result, error) {
	if _, err := c.fs.Stat(c.path); err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("config file %s not found", c.path),
			Remediation: "run aws configure to create it",
		}, nil
	}

	profiles, err := c.store.Profiles(ctx)
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("config file unreadable: %v", err),
			Remediation: "fix the syntax errors reported above, or recreate the file with aws configure",
		}, nil
	}
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("config file loaded (%d profiles)", len(profiles))}
	r.Detail("path", c.path)
	r.Detail("profiles", len(profiles))
	return r, nil
}

// ProfileCheck verifies the requested profile is configured.
type ProfileCheck struct {
	store awscli.ProfileStore
}

// NewProfileCheck creates the profile existence check.
func NewProfileCheck(store awscli.ProfileStore) *ProfileCheck {
	return &ProfileCheck{store: store}
}

// ID returns the check identifier.
func (c *ProfileCheck) ID() string { return "profile" }

// Name returns the check name.
func (c *ProfileCheck) Name() string { return "Profile" }

// Description explains what the check verifies.
func (c *ProfileCheck) Description() string {
	return "verifies the requested profile exists"
}

// Stage returns the check's stage.
func (c *ProfileCheck) Stage() Stage { return StageConfiguration }

// Execute verifies the effective profile appears in the configured set.
func (c *ProfileCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	profiles, err := c.store.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return &Result{
			Status:      StatusFail,
			Message:     "no profiles configured",
			Remediation: "run aws configure to create a profile",
		}, nil
	}

	want := dctx.ProfileName()
	for _, p := range profiles {
		if p == want {
			r := &Result{Status: StatusPass, Message: fmt.Sprintf("profile %q configured", want)}
			if dctx.Detailed {
				r.Detail("profiles", strings.Join(profiles, ", "))
			}
			return r, nil
		}
	}
	r := &Result{
		Status:      StatusFail,
		Message:     fmt.Sprintf("profile %q not found", want),
		Remediation: fmt.Sprintf("run aws configure --profile %s, or pass --profile with a configured name", want),
	}
	r.Detail("available", strings.Join(profiles, ", "))
	return r, nil
}

// DefaultsCheck verifies the profile has a default region and output
// format. Both are safely auto-fixable, so missing values warn rather
// than fail.
type DefaultsCheck struct {
	store awscli.ProfileStore
}

// NewDefaultsCheck creates the region/output defaults check.
func NewDefaultsCheck(store awscli.ProfileStore) *DefaultsCheck {
	return &DefaultsCheck{store: store}
}

// ID returns the check identifier.
func (c *DefaultsCheck) ID() string { return "config-defaults" }

// Name returns the check name.
func (c *DefaultsCheck) Name() string { return "Region and output defaults" }

// Description explains what the check verifies.
func (c *DefaultsCheck) Description() string {
	return "verifies the profile sets a default region and output format"
}

// Stage returns the check's stage.
func (c *DefaultsCheck) Stage() Stage { return StageConfiguration }

// Execute reads the profile's region and output settings.
func (c *DefaultsCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	profile := dctx.ProfileName()
	region, err := c.store.Get(ctx, profile, "region")
	if err != nil {
		return nil, err
	}
	output, err := c.store.Get(ctx, profile, "output")
	if err != nil {
		return nil, err
	}

	var missing []string
	if region == "" {
		missing = append(missing, "region")
	}
	if output == "" {
		missing = append(missing, "output")
	}
	if len(missing) > 0 {
		r := &Result{
			Status:      StatusWarn,
			Message:     fmt.Sprintf("profile %q missing defaults: %s", profile, strings.Join(missing, ", ")),
			Remediation: "run awsts doctor --fix to set sensible defaults",
		}
		r.Detail("missing", strings.Join(missing, ", "))
		return r, nil
	}
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("region %s, output %s", region, output)}
	r.Detail("region", region)
	r.Detail("output", output)
	return r, nil
}
