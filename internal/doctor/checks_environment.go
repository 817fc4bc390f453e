package doctor

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

// LookPathFunc is the function used to find binaries. Defaults to
// exec.LookPath. Tests can override this.
type LookPathFunc func(file string) (string, error)

// VersionFunc reports the installed aws CLI version.
type VersionFunc func(ctx context.Context) (string, error)

// CLICheck verifies the aws binary is on PATH and reports its version.
type CLICheck struct {
	lookPath LookPathFunc
	version  VersionFunc
}

// NewCLICheck creates the aws binary presence check. version may be nil,
// in which case only PATH presence is verified.
func NewCLICheck(lookPath LookPathFunc, version VersionFunc) *CLICheck {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &CLICheck{lookPath: lookPath, version: version}
}

// ID returns the check identifier.
func (c *CLICheck) ID() string { return "aws-cli" }

// Name returns the check name.
func (c *CLICheck) Name() string { return "AWS CLI" }

// Description explains what the check verifies.
func (c *CLICheck) Description() string {
	return "verifies the aws binary is installed and on PATH"
}

// Stage returns the check's stage.
func (c *CLICheck) Stage() Stage { return StageEnvironment }

// Execute checks for the aws binary and queries its version.
func (c *CLICheck) Execute(ctx context.Context, _ *Context) (*Result, error) {
	path, err := c.lookPath("aws")
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     "aws CLI not found in PATH",
			Remediation: "install the AWS CLI v2 and ensure it is in PATH",
		}, nil
	}

	r := &Result{Status: StatusPass, Message: fmt.Sprintf("found %s", path)}
	r.Detail("path", path)
	if c.version != nil {
		if v, err := c.version(ctx); err == nil {
			r.Detail("version", v)
		}
	}
	return r, nil
}

// HomeDirCheck verifies the AWS home directory (~/.aws) exists and is
// writable enough for repairs.
type HomeDirCheck struct {
	fs  fsys.FS
	dir string
}

// NewHomeDirCheck creates the AWS home directory check for dir.
func NewHomeDirCheck(fs fsys.FS, dir string) *HomeDirCheck {
	return &HomeDirCheck{fs: fs, dir: dir}
}

// ID returns the check identifier.
func (c *HomeDirCheck) ID() string { return "aws-home" }

// Name returns the check name.
func (c *HomeDirCheck) Name() string { return "AWS home directory" }

// Description explains what the check verifies.
func (c *HomeDirCheck) Description() string {
	return "verifies ~/.aws exists and is writable"
}

// Stage returns the check's stage.
func (c *HomeDirCheck) Stage() Stage { return StageEnvironment }

// Execute checks the AWS home directory. A missing directory is a warning
// (safe repairs can create it), not a failure.
func (c *HomeDirCheck) Execute(_ context.Context, _ *Context) (*Result, error) {
	fi, err := c.fs.Stat(c.dir)
	if err != nil {
		return &Result{
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%s does not exist", c.dir),
			Remediation: "run aws configure, or awsts doctor --fix to create it",
		}, nil
	}
	if !fi.IsDir() {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("%s exists but is not a directory", c.dir),
			Remediation: fmt.Sprintf("move the file aside so %s can be a directory", c.dir),
		}, nil
	}
	if fi.Mode().Perm()&0o200 == 0 {
		return &Result{
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%s is not writable", c.dir),
			Remediation: fmt.Sprintf("chmod u+w %s", c.dir),
		}, nil
	}
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("%s present and writable", c.dir)}
	r.Detail("path", c.dir)
	return r, nil
}

// GetenvFunc reads an environment variable. Defaults to os.Getenv.
type GetenvFunc func(key string) string

// EnvVarsCheck verifies the AWS_* environment variables are consistent.
type EnvVarsCheck struct {
	getenv GetenvFunc
}

// NewEnvVarsCheck creates the environment variable consistency check.
func NewEnvVarsCheck(getenv GetenvFunc) *EnvVarsCheck {
	return &EnvVarsCheck{getenv: getenv}
}

// ID returns the check identifier.
func (c *EnvVarsCheck) ID() string { return "env-vars" }

// Name returns the check name.
func (c *EnvVarsCheck) Name() string { return "Environment variables" }

// Description explains what the check verifies.
func (c *EnvVarsCheck) Description() string {
	return "verifies AWS_* environment variables are consistent"
}

// Stage returns the check's stage.
func (c *EnvVarsCheck) Stage() Stage { return StageEnvironment }

// Execute inspects the AWS_* environment variables for broken or
// ambiguous combinations.
func (c *EnvVarsCheck) Execute(_ context.Context, _ *Context) (*Result, error) {
	accessKey := c.getenv("AWS_ACCESS_KEY_ID")
	secretKey := c.getenv("AWS_SECRET_ACCESS_KEY")
	profile := c.getenv("AWS_PROFILE")
	region := c.getenv("AWS_REGION")
	defaultRegion := c.getenv("AWS_DEFAULT_REGION")

	if accessKey != "" && secretKey == "" {
		return &Result{
			Status:      StatusFail,
			Message:     "AWS_ACCESS_KEY_ID is set without AWS_SECRET_ACCESS_KEY",
			Remediation: "set AWS_SECRET_ACCESS_KEY or unset AWS_ACCESS_KEY_ID",
		}, nil
	}
	if accessKey != "" && profile != "" {
		return &Result{
			Status:      StatusWarn,
			Message:     "both AWS_PROFILE and static key variables are set; static keys take precedence",
			Remediation: "unset the one you do not intend to use",
		}, nil
	}
	if region != "" && defaultRegion != "" && region != defaultRegion {
		r := &Result{
			Status:      StatusWarn,
			Message:     "AWS_REGION and AWS_DEFAULT_REGION disagree; AWS_REGION wins",
			Remediation: "unset AWS_DEFAULT_REGION",
		}
		r.Detail("AWS_REGION", region)
		r.Detail("AWS_DEFAULT_REGION", defaultRegion)
		return r, nil
	}
	return &Result{Status: StatusPass, Message: "environment variables consistent"}, nil
}
