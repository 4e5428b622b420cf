// pkg/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joeydtaylor/neonguard/pkg/cookiesign"
)

var (
	ErrMissingBaseURL = errors.New("config: upstream base_url is required")
	ErrWeakSecret     = fmt.Errorf("config: cookie secret must be at least %d characters", cookiesign.MinSecretLen)
)

// Validate enforces the pieces whose absence would silently break the
// security contract. These are configuration errors: fatal, never defaulted.
func (c Config) Validate() error {
	base := strings.TrimSpace(c.Upstream.BaseURL)
	if base == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: upstream base_url %q is not an absolute URL", base)
	}
	if len(c.Cookie.Secret) < cookiesign.MinSecretLen {
		return ErrWeakSecret
	}
	if !strings.HasPrefix(c.Protect.LoginURL, "/") {
		return fmt.Errorf("config: login_url %q must be path-absolute", c.Protect.LoginURL)
	}
	for _, p := range c.Protect.SkipPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("config: skip path %q must be path-absolute", p)
		}
	}
	return nil
}
