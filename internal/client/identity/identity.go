// Package identity assigns anonymous interview participants a stable
// identifier per project.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/aiinterview/internal/client/storage"
)

// GetParticipantID returns the participant identifier for projectID.
// The first call generates a random UUID and caches it under
// interview_session_{projectID}; later calls return the cached value.
func GetParticipantID(ctx context.Context, st storage.Storage, projectID string) (string, error) {
	key := storage.ParticipantKey(projectID)

	id, err := storage.ValueOrEmpty(ctx, st, key)
	if err != nil {
		return "", fmt.Errorf("failed to read participant id: %w", err)
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := st.Set(ctx, key, id); err != nil {
		return "", fmt.Errorf("failed to save participant id: %w", err)
	}
	return id, nil
}
