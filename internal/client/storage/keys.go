package storage

// Имена ключей хранилища. Совпадают с ключами localStorage веб-клиента,
// чтобы профиль можно было перенести без миграции.
const (
	KeyAccessToken        = "access_token"
	KeyRefreshToken       = "refresh_token"
	KeyUserID             = "user_id"
	KeyUsername           = "username"
	KeyTokenExpiresAt     = "token_expires_at"
	KeyCSRFToken          = "csrf_token"
	KeyInterviewSessionID = "interviewSessionId"

	participantKeyPrefix = "interview_session_"
)

// SessionKeys are the credential keys removed on logout.
var SessionKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyUserID,
	KeyUsername,
	KeyTokenExpiresAt,
}

// ParticipantKey returns the key caching the participant identifier of a project
func ParticipantKey(projectID string) string {
	return participantKeyPrefix + projectID
}
