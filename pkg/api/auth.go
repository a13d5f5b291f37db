package api

import "encoding/json"

// LoginRequest представляет запрос на аутентификацию.
// Бэкенд принимает либо username, либо email.
type LoginRequest struct {
	Username string `json:"username,omitempty"` // username пользователя
	Email    string `json:"email,omitempty"`    // email (альтернатива username)
	Password string `json:"password"`
}

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest представляет запрос на обновление access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionData представляет набор учетных данных, который возвращают
// login, register и refresh (содержимое поля data конверта)
type SessionData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	UserID       ID     `json:"user_id,omitempty"`
	Username     string `json:"username,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // секунды с начала эпохи
}

// UnmarshalJSON принимает id как синоним user_id: register
// возвращает созданного пользователя, а не сессию.
func (s *SessionData) UnmarshalJSON(data []byte) error {
	type plain SessionData
	aux := struct {
		*plain
		ID ID `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.UserID == "" {
		s.UserID = aux.ID
	}
	return nil
}
