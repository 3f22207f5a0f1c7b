package social

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a request struct against its validate tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Require fails when value is empty.
func Require(name, value string) error {
	if err := validate.Var(value, "required"); err != nil {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, name)
	}
	return nil
}

// RequireToken checks that a credential carries an access token.
func RequireToken(cred Credential) error {
	return Require("access token", cred.AccessToken)
}

// RequireAccount checks that a credential carries both a token and an
// account id.
func RequireAccount(cred Credential) error {
	if err := RequireToken(cred); err != nil {
		return err
	}
	return Require("account id", cred.AccountID)
}

// CheckPublishAt verifies a scheduled time falls inside [now+min, now+max].
func CheckPublishAt(at, now time.Time, min, max time.Duration) error {
	if at.Before(now.Add(min)) {
		return fmt.Errorf("%w: publish time must be at least %s in the future", ErrInvalidRequest, min)
	}
	if max > 0 && at.After(now.Add(max)) {
		return fmt.Errorf("%w: publish time must be within %s", ErrInvalidRequest, max)
	}
	return nil
}
