package doctor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/enri3l/aws-ts-sub005/internal/awscli"
)

func TestCredentialsCheck(t *testing.T) {
	t.Run("static credentials resolve", func(t *testing.T) {
		c := NewCredentialsCheck(awscli.NewFake())
		res, err := c.Execute(context.Background(), &Context{})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.Status != StatusPass {
			t.Errorf("status = %v, want pass", res.Status)
		}
		if !hasDetail(res, "kind", "static") {
			t.Errorf("details = %v, want kind static", res.Details)
		}
	})

	t.Run("temporary credentials resolve", func(t *testing.T) {
		fake := awscli.NewFake()
		fake.HasExpiration = true
		fake.ExpirationTime = time.Now().Add(time.Hour)
		c := NewCredentialsCheck(fake)
		res, err := c.Execute(context.Background(), &Context{})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !hasDetail(res, "kind", "temporary") {
			t.Errorf("details = %v, want kind temporary", res.Details)
		}
	})

	t.Run("unresolvable fails", func(t *testing.T) {
		fake := awscli.NewFake()
		fake.ExpirationErr = errors.New("Unable to locate credentials")
		c := NewCredentialsCheck(fake)
		res, err := c.Execute(context.Background(), &Context{Profile: "dev"})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.Status != StatusFail {
			t.Errorf("status = %v, want fail", res.Status)
		}
		if !strings.Contains(res.Message, "dev") {
			t.Errorf("message = %q, want profile named", res.Message)
		}
	})
}

func TestIdentityCheck(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fake := awscli.NewFake()
		fake.IdentityResult = awscli.Identity{
			Account: "123456789012",
			Arn:     "arn:aws:iam::123456789012:user/dev",
		}
		c := NewIdentityCheck(fake)
		res, err := c.Execute(context.Background(), &Context{})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.Status != StatusPass {
			t.Errorf("status = %v, want pass", res.Status)
		}
		if !hasDetail(res, "account", "123456789012") {
			t.Errorf("details = %v, want account", res.Details)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		fake := awscli.NewFake()
		fake.IdentityErr = errors.New("ExpiredToken")
		c := NewIdentityCheck(fake)
		res, err := c.Execute(context.Background(), &Context{})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.Status != StatusFail {
			t.Errorf("status = %v, want fail", res.Status)
		}
	})
}

func TestTokenExpiryCheck(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		exp     time.Time
		hasExp  bool
		err     error
		want    Status
		message string
	}{
		{
			name: "static credentials pass",
			want: StatusPass,
		},
		{
			name:    "valid token",
			exp:     base.Add(8 * time.Hour),
			hasExp:  true,
			want:    StatusPass,
			message: "valid for",
		},
		{
			name:    "expiring soon warns",
			exp:     base.Add(10 * time.Minute),
			hasExp:  true,
			want:    StatusWarn,
			message: "expires in",
		},
		{
			name:    "expired fails",
			exp:     base.Add(-2 * time.Hour),
			hasExp:  true,
			want:    StatusFail,
			message: "expired",
		},
		{
			name: "unresolvable fails",
			err:  errors.New("SSO session expired"),
			want: StatusFail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := awscli.NewFake()
			fake.ExpirationTime = tt.exp
			fake.HasExpiration = tt.hasExp
			fake.ExpirationErr = tt.err
			c := NewTokenExpiryCheck(fake, 0)
			c.now = func() time.Time { return base }
			res, err := c.Execute(context.Background(), &Context{Profile: "sso-dev"})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Status != tt.want {
				t.Errorf("status = %v, want %v", res.Status, tt.want)
			}
			if tt.message != "" && !strings.Contains(res.Message, tt.message) {
				t.Errorf("message = %q, want substring %q", res.Message, tt.message)
			}
			if tt.want != StatusPass && res.Remediation == "" {
				t.Error("want remediation on non-pass result")
			}
		})
	}
}
