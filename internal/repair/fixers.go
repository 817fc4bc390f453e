package repair

import (
	"context"
	"fmt"

	"github.com/enri3l/aws-ts-sub005/internal/awscli"
	"github.com/enri3l/aws-ts-sub005/internal/doctor"
	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

// SSOLoginer starts an SSO login flow for a profile.
type SSOLoginer interface {
	SSOLogin(ctx context.Context, profile string) error
}

// FixerDeps carries the collaborators the standard fixers need.
type FixerDeps struct {
	FS         fsys.FS
	Writer     awscli.ConfigWriter
	Login      SSOLoginer
	AwsDir     string // ~/.aws
	ConfigPath string // ~/.aws/config
	// Defaults applied by the config-defaults fixer.
	Region string
	Output string
}

// DefaultFixers returns the standard fixer set, in application order.
// Safe fixers are deterministic and non-destructive; everything touching
// credentials or requiring a browser flow is interactive-only.
func DefaultFixers(deps FixerDeps) []Fixer {
	return []Fixer{
		{
			CheckID:     "aws-home",
			Safe:        true,
			Description: fmt.Sprintf("create %s", deps.AwsDir),
			Apply: func(_ context.Context, _ *doctor.Context) ([]string, error) {
				if err := deps.FS.MkdirAll(deps.AwsDir, 0o700); err != nil {
					return nil, err
				}
				return []string{"mkdir " + deps.AwsDir}, nil
			},
		},
		{
			CheckID:     "config-defaults",
			Safe:        true,
			Description: fmt.Sprintf("set default region %s and output %s", deps.Region, deps.Output),
			File:        deps.ConfigPath,
			Apply: func(ctx context.Context, dctx *doctor.Context) ([]string, error) {
				profile := dctx.ProfileName()
				var ops []string
				if err := deps.Writer.Set(ctx, profile, "region", deps.Region); err != nil {
					return ops, err
				}
				ops = append(ops, fmt.Sprintf("set %s.region = %s", profile, deps.Region))
				if err := deps.Writer.Set(ctx, profile, "output", deps.Output); err != nil {
					return ops, err
				}
				ops = append(ops, fmt.Sprintf("set %s.output = %s", profile, deps.Output))
				return ops, nil
			},
		},
		{
			// Creating a profile writes config the user may not expect;
			// confirmation required.
			CheckID:     "config-file",
			Safe:        false,
			Description: fmt.Sprintf("create %s with a default profile", deps.ConfigPath),
			File:        deps.ConfigPath,
			Apply: func(ctx context.Context, dctx *doctor.Context) ([]string, error) {
				profile := dctx.ProfileName()
				if err := deps.Writer.Set(ctx, profile, "region", deps.Region); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("created profile %s with region %s", profile, deps.Region)}, nil
			},
		},
		{
			// Opens a browser and blocks on user interaction.
			CheckID:     "sso-token",
			Safe:        false,
			Description: "start an SSO login flow to refresh the token",
			Apply: func(ctx context.Context, dctx *doctor.Context) ([]string, error) {
				profile := dctx.ProfileName()
				if err := deps.Login.SSOLogin(ctx, profile); err != nil {
					return nil, err
				}
				return []string{"aws sso login --profile " + profile}, nil
			},
		},
	}
}
