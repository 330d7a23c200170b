// Package deps looks up the external binaries optional extractors shell out to.
package deps

import (
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Checker verifies that external binaries are available in PATH.
type Checker struct {
	dependencies []string
	lookPath     func(string) (string, error)
}

// NewChecker creates a new dependency checker with the given dependencies.
func NewChecker(deps ...string) *Checker {
	return &Checker{dependencies: deps, lookPath: exec.LookPath}
}

// CheckAll verifies all dependencies are available.
// Returns an error listing all missing dependencies.
func (c *Checker) CheckAll() error {
	var missing []string

	for _, dep := range c.dependencies {
		if !c.IsAvailable(dep) {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &MissingDepsError{Dependencies: missing}
	}

	return nil
}

// IsAvailable checks if a single dependency is available in PATH.
func (c *Checker) IsAvailable(name string) bool {
	_, err := c.lookPath(name)
	return err == nil
}

// CheckAndLog checks all dependencies and logs the resolved path or a
// warning for each. Returns error if any dependency is missing.
func (c *Checker) CheckAndLog(log logrus.FieldLogger) error {
	var missing []string

	for _, dep := range c.dependencies {
		path, err := c.lookPath(dep)
		if err != nil {
			log.WithField("binary", dep).Warn("not found in PATH, install it and retry")
			missing = append(missing, dep)
			continue
		}
		log.WithFields(logrus.Fields{"binary": dep, "path": path}).Debug("dependency found")
	}

	if len(missing) > 0 {
		return &MissingDepsError{Dependencies: missing}
	}

	return nil
}

// MissingDepsError is returned when required dependencies are missing.
type MissingDepsError struct {
	Dependencies []string
}

func (e *MissingDepsError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.Dependencies)
}
