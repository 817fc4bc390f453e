package doctor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

func TestCLICheckFound(t *testing.T) {
	c := NewCLICheck(
		func(file string) (string, error) { return "/usr/local/bin/" + file, nil },
		func(context.Context) (string, error) { return "aws-cli/2.17.0", nil },
	)
	res, err := c.Execute(context.Background(), &Context{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != StatusPass {
		t.Errorf("status = %v, want pass", res.Status)
	}
	if !hasDetail(res, "version", "aws-cli/2.17.0") {
		t.Errorf("details = %v, want version detail", res.Details)
	}
}

func TestCLICheckMissing(t *testing.T) {
	c := NewCLICheck(
		func(string) (string, error) { return "", errors.New("not found") },
		nil,
	)
	res, err := c.Execute(context.Background(), &Context{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != StatusFail {
		t.Errorf("status = %v, want fail", res.Status)
	}
	if res.Remediation == "" {
		t.Error("want remediation for missing binary")
	}
}

func TestCLICheckVersionErrorIgnored(t *testing.T) {
	c := NewCLICheck(
		func(file string) (string, error) { return "/usr/bin/" + file, nil },
		func(context.Context) (string, error) { return "", errors.New("exec failed") },
	)
	res, err := c.Execute(context.Background(), &Context{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Version is informational only; its failure never fails the check.
	if res.Status != StatusPass {
		t.Errorf("status = %v, want pass", res.Status)
	}
}

func TestHomeDirCheck(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fake *fsys.Fake)
		want  Status
	}{
		{
			name:  "present",
			setup: func(fake *fsys.Fake) { fake.Dirs["/home/u/.aws"] = true },
			want:  StatusPass,
		},
		{
			name:  "missing",
			setup: func(*fsys.Fake) {},
			want:  StatusWarn,
		},
		{
			name:  "not a directory",
			setup: func(fake *fsys.Fake) { fake.Files["/home/u/.aws"] = []byte("oops") },
			want:  StatusFail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fsys.NewFake()
			tt.setup(fake)
			c := NewHomeDirCheck(fake, "/home/u/.aws")
			res, err := c.Execute(context.Background(), &Context{})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Status != tt.want {
				t.Errorf("status = %v, want %v", res.Status, tt.want)
			}
		})
	}
}

func TestEnvVarsCheck(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    Status
		message string
	}{
		{
			name: "clean",
			env:  map[string]string{},
			want: StatusPass,
		},
		{
			name: "access key without secret",
			env:  map[string]string{"AWS_ACCESS_KEY_ID": "AKIA123"},
			want: StatusFail,
		},
		{
			name: "profile and static keys",
			env: map[string]string{
				"AWS_ACCESS_KEY_ID":     "AKIA123",
				"AWS_SECRET_ACCESS_KEY": "secret",
				"AWS_PROFILE":           "dev",
			},
			want:    StatusWarn,
			message: "static keys take precedence",
		},
		{
			name: "conflicting regions",
			env: map[string]string{
				"AWS_REGION":         "us-east-1",
				"AWS_DEFAULT_REGION": "eu-west-1",
			},
			want:    StatusWarn,
			message: "AWS_REGION wins",
		},
		{
			name: "agreeing regions",
			env: map[string]string{
				"AWS_REGION":         "us-east-1",
				"AWS_DEFAULT_REGION": "us-east-1",
			},
			want: StatusPass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewEnvVarsCheck(func(key string) string { return tt.env[key] })
			res, err := c.Execute(context.Background(), &Context{})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Status != tt.want {
				t.Errorf("status = %v, want %v", res.Status, tt.want)
			}
			if tt.message != "" && !strings.Contains(res.Message, tt.message) {
				t.Errorf("message = %q, want substring %q", res.Message, tt.message)
			}
		})
	}
}

// hasDetail reports whether the result has a detail with the given key
// and value.
func hasDetail(r *Result, key string, value any) bool {
	for _, d := range r.Details {
		if d.Key == key && d.Value == value {
			return true
		}
	}
	return false
}
