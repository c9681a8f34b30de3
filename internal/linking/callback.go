package linking

import (
	"context"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/oauth"
)

// CallbackResult is the outcome of a provider callback, shaped by the
// intent that was stamped into the state at BeginAuth time.
type CallbackResult struct {
	Intent oauth.Intent

	// User is set for login and sync intents.
	User *models.User

	// Link is set for link intent.
	Link *models.LinkedProvider
}

// Complete consumes the callback state and dispatches on the intent it was
// issued with. Callers that already know the intent can use CompleteLogin,
// Link, or CompleteProfileSync directly.
func (s *Service) Complete(ctx context.Context, provider, code, state string) (*CallbackResult, error) {
	payload, ok := s.states.Consume(state)
	if !ok || payload.Provider != provider {
		return nil, apperr.OAuth("state mismatch or expired, restart the authorization")
	}

	switch payload.Intent {
	case oauth.IntentLogin:
		user, err := s.loginWithCode(ctx, provider, code)
		if err != nil {
			return nil, err
		}

		return &CallbackResult{Intent: oauth.IntentLogin, User: user}, nil
	case oauth.IntentLink:
		link, err := s.linkWithCode(ctx, payload.UserID, provider, code)
		if err != nil {
			return nil, err
		}

		return &CallbackResult{Intent: oauth.IntentLink, Link: link}, nil
	case oauth.IntentSync:
		user, err := s.syncWithCode(ctx, payload.UserID, provider, code)
		if err != nil {
			return nil, err
		}

		return &CallbackResult{Intent: oauth.IntentSync, User: user}, nil
	default:
		return nil, apperr.OAuth("state carries an unknown intent")
	}
}
