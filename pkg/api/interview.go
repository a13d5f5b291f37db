package api

import "encoding/json"

// Пути эндпоинтов бэкенда (без префикса /api, его добавляет HTTP клиент)
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathRefresh        = "/auth/refresh"
	PathSessions       = "/sessions"
	PathProjects       = "/projects"
	PathAIConfigs      = "/ai-configs"
	PathChat           = "/chat"
	PathSpeechToText   = "/speech-to-text"
	PathExportSelected = "/export/selected"
	PathExportProject  = "/export/project"
	PathExportSession  = "/export/session"
)

// ClientInfo описывает окружение гостя, отправляется при создании сессии
type ClientInfo struct {
	UserAgent   string `json:"userAgent"`
	Screen      string `json:"screen"`
	VisitorUUID string `json:"visitor_uuid"`
}

// CreateSessionRequest представляет запрос на создание сессии интервью
type CreateSessionRequest struct {
	ProjectID       string     `json:"project_id"`
	ParticipantID   string     `json:"participant_id,omitempty"`
	VisitorUUID     string     `json:"visitor_uuid,omitempty"`
	IntervieweeInfo ClientInfo `json:"interviewee_info"`
}

// CreateSessionResponse представляет ответ на создание сессии
type CreateSessionResponse struct {
	SessionID ID `json:"session_id"`
	ProjectID ID `json:"project_id"`
}

// ProjectInfo is an opaque project description. Only the fields the
// client needs are decoded, the full document is kept in Raw.
type ProjectInfo struct {
	ID         ID              `json:"id"`
	Name       string          `json:"name"`
	AIConfigID ID              `json:"ai_config_id"`
	Status     string          `json:"status"`
	Raw        json.RawMessage `json:"-"`
}

// UnmarshalJSON сохраняет исходный документ проекта
func (p *ProjectInfo) UnmarshalJSON(data []byte) error {
	type plain ProjectInfo
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// RoleSettings - часть конфигурации AI, которую использует клиент
type RoleSettings struct {
	OpeningText string `json:"opening_text"`
}

// AIConfig is an opaque AI interviewer configuration.
type AIConfig struct {
	ID           ID              `json:"id"`
	Name         string          `json:"name"`
	RoleSettings RoleSettings    `json:"role_settings"`
	Raw          json.RawMessage `json:"-"`
}

// UnmarshalJSON сохраняет исходный документ конфигурации
func (c *AIConfig) UnmarshalJSON(data []byte) error {
	type plain AIConfig
	if err := json.Unmarshal(data, (*plain)(c)); err != nil {
		return err
	}
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ChatRequest представляет одну реплику участника
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// ChatResponse представляет ответ AI интервьюера
type ChatResponse struct {
	Reply string `json:"reply"`
}

// SpeechResult представляет результат распознавания речи
type SpeechResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"`
}

// EndSessionResponse представляет ответ на завершение сессии
type EndSessionResponse struct {
	SessionID ID     `json:"session_id"`
	EndTime   string `json:"end_time"`
}

// ExportSelectedRequest представляет запрос на выгрузку выбранных сессий
type ExportSelectedRequest struct {
	SessionIDs []string `json:"session_ids"`
}
