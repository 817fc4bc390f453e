package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/enri3l/aws-ts-sub005/internal/awscli"
)

// CredentialsCheck verifies credentials can be resolved for the profile
// through the credential chain (static keys, SSO cache, process creds).
type CredentialsCheck struct {
	inspector awscli.TokenInspector
}

// NewCredentialsCheck creates the credential resolution check.
func NewCredentialsCheck(inspector awscli.TokenInspector) *CredentialsCheck {
	return &CredentialsCheck{inspector: inspector}
}

// ID returns the check identifier.
func (c *CredentialsCheck) ID() string { return "credentials" }

// Name returns the check name.
func (c *CredentialsCheck) Name() string { return "Credentials" }

// Description explains what the check verifies.
func (c *CredentialsCheck) Description() string {
	return "verifies credentials resolve for the profile"
}

// Stage returns the check's stage.
func (c *CredentialsCheck) Stage() Stage { return StageAuthentication }

// Execute resolves credentials without calling AWS.
func (c *CredentialsCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	profile := dctx.ProfileName()
	_, hasExp, err := c.inspector.Expiration(ctx, profile)
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("credentials for profile %q cannot be resolved: %v", profile, err),
			Remediation: "run aws configure, or aws sso login for SSO profiles",
		}, nil
	}
	kind := "static"
	if hasExp {
		kind = "temporary"
	}
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("%s credentials resolved for %q", kind, profile)}
	r.Detail("kind", kind)
	return r, nil
}

// IdentityCheck validates credentials against STS and reports the caller
// identity.
type IdentityCheck struct {
	validator awscli.CredentialValidator
}

// NewIdentityCheck creates the STS identity check.
func NewIdentityCheck(validator awscli.CredentialValidator) *IdentityCheck {
	return &IdentityCheck{validator: validator}
}

// ID returns the check identifier.
func (c *IdentityCheck) ID() string { return "sts-identity" }

// Name returns the check name.
func (c *IdentityCheck) Name() string { return "Caller identity" }

// Description explains what the check verifies.
func (c *IdentityCheck) Description() string {
	return "validates credentials against STS"
}

// Stage returns the check's stage.
func (c *IdentityCheck) Stage() Stage { return StageAuthentication }

// Execute calls STS GetCallerIdentity through the collaborator.
func (c *IdentityCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	profile := dctx.ProfileName()
	id, err := c.validator.Identity(ctx, profile)
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("credentials for profile %q rejected: %v", profile, err),
			Remediation: "refresh credentials (aws sso login) or reconfigure the profile",
		}, nil
	}
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("authenticated as %s", id.Arn)}
	r.Detail("account", id.Account)
	r.Detail("arn", id.Arn)
	return r, nil
}

// DefaultExpiryWarnWindow is how close to expiry a token can get before
// the SSO token check warns.
const DefaultExpiryWarnWindow = 15 * time.Minute

// TokenExpiryCheck verifies temporary credentials (SSO tokens, assumed
// roles) are not expired or about to expire.
type TokenExpiryCheck struct {
	inspector  awscli.TokenInspector
	warnWindow time.Duration
	now        func() time.Time
}

// NewTokenExpiryCheck creates the token expiry check. warnWindow <= 0
// uses DefaultExpiryWarnWindow.
func NewTokenExpiryCheck(inspector awscli.TokenInspector, warnWindow time.Duration) *TokenExpiryCheck {
	if warnWindow <= 0 {
		warnWindow = DefaultExpiryWarnWindow
	}
	return &TokenExpiryCheck{inspector: inspector, warnWindow: warnWindow, now: time.Now}
}

// ID returns the check identifier.
func (c *TokenExpiryCheck) ID() string { return "sso-token" }

// Name returns the check name.
func (c *TokenExpiryCheck) Name() string { return "Token expiry" }

// Description explains what the check verifies.
func (c *TokenExpiryCheck) Description() string {
	return "verifies temporary credentials are not expired"
}

// Stage returns the check's stage.
func (c *TokenExpiryCheck) Stage() Stage { return StageAuthentication }

// Execute inspects credential expiry for the profile.
func (c *TokenExpiryCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	profile := dctx.ProfileName()
	exp, hasExp, err := c.inspector.Expiration(ctx, profile)
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("token state for profile %q unknown: %v", profile, err),
			Remediation: "run aws sso login --profile " + profile,
		}, nil
	}
	if !hasExp {
		return &Result{Status: StatusPass, Message: "credentials do not expire"}, nil
	}

	now := c.now()
	remaining := exp.Sub(now)
	switch {
	case remaining <= 0:
		r := &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("token for profile %q expired %s ago", profile, (-remaining).Round(time.Minute)),
			Remediation: "run aws sso login --profile " + profile,
		}
		r.Detail("expiredAt", exp.Format(time.RFC3339))
		return r, nil
	case remaining < c.warnWindow:
		r := &Result{
			Status:      StatusWarn,
			Message:     fmt.Sprintf("token for profile %q expires in %s", profile, remaining.Round(time.Minute)),
			Remediation: "run aws sso login --profile " + profile + " soon",
		}
		r.Detail("expiresAt", exp.Format(time.RFC3339))
		return r, nil
	default:
		r := &Result{Status: StatusPass, Message: fmt.Sprintf("token valid for %s", remaining.Round(time.Minute))}
		r.Detail("expiresAt", exp.Format(time.RFC3339))
		return r, nil
	}
}
