package prerequisite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paldcore/paldcore/pkg/pald"
)

// ConsentStore is the interface-only boundary onto the external consent
// store; the core never owns consent state itself.
type ConsentStore interface {
	HasConsent(ctx context.Context, userID, consentKind string) (bool, error)
}

// requiredConsents are the slugs a user must have granted before
// AI-driven operations may proceed.
var requiredConsents = []string{"data_processing", "ai_interaction", "image_generation"}

// ConsentStatusChecker verifies a fixed set of required consents for one
// user against a ConsentStore.
type ConsentStatusChecker struct {
	UserID string
	Store  ConsentStore
}

// NewConsentStatusChecker returns a checker verifying userID's required
// consents against store.
func NewConsentStatusChecker(userID string, store ConsentStore) *ConsentStatusChecker {
	return &ConsentStatusChecker{UserID: userID, Store: store}
}

func (c *ConsentStatusChecker) Name() string            { return "consent_status" }
func (c *ConsentStatusChecker) Kind() pald.CheckerKind { return pald.KindRequired }

func (c *ConsentStatusChecker) Check(ctx context.Context) pald.PrerequisiteResult {
	start := time.Now()

	var missing []string
	for _, kind := range requiredConsents {
		granted, err := c.Store.HasConsent(ctx, c.UserID, kind)
		if err != nil {
			return pald.PrerequisiteResult{
				Name:             c.Name(),
				Status:           pald.StatusFailed,
				Message:          fmt.Sprintf("error checking consent status: %s", err),
				CheckTimeSeconds: time.Since(start).Seconds(),
				Kind:             c.Kind(),
			}
		}
		if !granted {
			missing = append(missing, kind)
		}
	}

	if len(missing) == 0 {
		return pald.PrerequisiteResult{
			Name:             c.Name(),
			Status:           pald.StatusPassed,
			Message:          "all required consents are granted",
			CheckTimeSeconds: time.Since(start).Seconds(),
			Kind:             c.Kind(),
		}
	}

	return pald.PrerequisiteResult{
		Name:    c.Name(),
		Status:  pald.StatusFailed,
		Message: fmt.Sprintf("missing required consents: %s", strings.Join(missing, ", ")),
		ResolutionSteps: []string{
			"Open the consent settings page",
			"Grant the required consents",
			"Retry the operation",
		},
		CheckTimeSeconds: time.Since(start).Seconds(),
		Kind:             c.Kind(),
	}
}
