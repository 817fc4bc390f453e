package awscli

import (
	"context"
	"time"
)

// Fake is an in-memory implementation of the collaborator interfaces for
// testing. Pre-populate the fields before use; Errors injected per method
// take precedence over canned results.
type Fake struct {
	ProfileList []string
	ProfilesErr error

	// Values maps "profile/key" to config values. Missing keys return
	// ("", nil) like the real CLI adapter.
	Values map[string]string
	GetErr error

	SetCalls []SetCall
	SetErr   error

	IdentityResult Identity
	IdentityErr    error

	ExpirationTime time.Time
	HasExpiration  bool
	ExpirationErr  error

	LoginProfiles []string
	LoginErr      error
}

// SetCall records a single ConfigWriter.Set invocation.
type SetCall struct {
	Profile string
	Key     string
	Value   string
}

// NewFake returns a ready-to-use Fake with an empty value map.
func NewFake() *Fake {
	return &Fake{Values: make(map[string]string)}
}

// Profiles returns the canned profile list.
func (f *Fake) Profiles(_ context.Context) ([]string, error) {
	if f.ProfilesErr != nil {
		return nil, f.ProfilesErr
	}
	return f.ProfileList, nil
}

// Get returns the canned value for "profile/key".
func (f *Fake) Get(_ context.Context, profile, key string) (string, error) {
	if f.GetErr != nil {
		return "", f.GetErr
	}
	return f.Values[profile+"/"+key], nil
}

// Set records the call and stores the value.
func (f *Fake) Set(_ context.Context, profile, key, value string) error {
	f.SetCalls = append(f.SetCalls, SetCall{Profile: profile, Key: key, Value: value})
	if f.SetErr != nil {
		return f.SetErr
	}
	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	f.Values[profile+"/"+key] = value
	return nil
}

// Identity returns the canned identity.
func (f *Fake) Identity(_ context.Context, _ string) (Identity, error) {
	if f.IdentityErr != nil {
		return Identity{}, f.IdentityErr
	}
	return f.IdentityResult, nil
}

// Expiration returns the canned expiration.
func (f *Fake) Expiration(_ context.Context, _ string) (time.Time, bool, error) {
	if f.ExpirationErr != nil {
		return time.Time{}, false, f.ExpirationErr
	}
	return f.ExpirationTime, f.HasExpiration, nil
}

// SSOLogin records the call.
func (f *Fake) SSOLogin(_ context.Context, profile string) error {
	f.LoginProfiles = append(f.LoginProfiles, profile)
	return f.LoginErr
}

var (
	_ ProfileStore        = (*Fake)(nil)
	_ ConfigWriter        = (*Fake)(nil)
	_ CredentialValidator = (*Fake)(nil)
	_ TokenInspector      = (*Fake)(nil)
)
