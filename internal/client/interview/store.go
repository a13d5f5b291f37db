// Package interview drives a guest through an AI interview: session setup,
// the chat with the AI interviewer and the end of the session.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/aiinterview/internal/client/identity"
	"github.com/iudanet/aiinterview/internal/client/storage"
	"github.com/iudanet/aiinterview/pkg/api"
)

var (
	// ErrMissingProjectID - в ссылке нет projectId
	ErrMissingProjectID = errors.New("invalid link: missing project id")
	// ErrInvalidTransition is returned when a page change would move backwards
	ErrInvalidTransition = errors.New("invalid page transition")
)

// Задержки по умолчанию
const (
	DefaultOpeningDelay = 800 * time.Millisecond
	DefaultEndDelay     = 2 * time.Second
)

//go:generate moq -out client_mock.go . APIClient

// APIClient is the part of the backend the interview flow talks to
type APIClient interface {
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (*api.CreateSessionResponse, error)
	GetProject(ctx context.Context, projectID string) (*api.ProjectInfo, error)
	GetAIConfig(ctx context.Context, configID string) (*api.AIConfig, error)
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	EndSession(ctx context.Context, sessionID string) error
	SpeechToText(ctx context.Context, filename string, audio io.Reader) (*api.SpeechResult, error)
}

// Speaker plays AI replies aloud
type Speaker interface {
	// Cancel stops the current utterance
	Cancel()
}

// Listener is called with a snapshot after every state change
type Listener func(State)

// Option настраивает Store
type Option func(*Store)

// WithOpeningDelay sets the pause before the opening messages appear
func WithOpeningDelay(d time.Duration) Option {
	return func(s *Store) { s.openingDelay = d }
}

// WithEndDelay sets the pause between an end marker and the end page
func WithEndDelay(d time.Duration) Option {
	return func(s *Store) { s.endDelay = d }
}

// WithClientInfo sets the environment description sent on session creation
func WithClientInfo(info api.ClientInfo) Option {
	return func(s *Store) { s.clientInfo = info }
}

// WithSpeaker sets the speech synthesis InterruptAI cancels
func WithSpeaker(sp Speaker) Option {
	return func(s *Store) { s.speaker = sp }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithListener subscribes l to state changes. Snapshots are delivered one
// at a time in the order the changes were made; l must not change the store.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listener = l }
}

// Store is the state machine of one interview.
//
// Network calls run without holding the lock, so overlapping SendMessage
// or UploadAudio calls append their replies in completion order.
type Store struct {
	client       APIClient
	storage      storage.Storage
	location     Location
	speaker      Speaker
	logger       *slog.Logger
	listener     Listener
	clientInfo   api.ClientInfo
	timers       []*time.Timer
	state        State
	openingDelay time.Duration
	endDelay     time.Duration
	// generation растет при ResetState, отложенные действия старого поколения не выполняются
	generation uint64
	version    uint64
	mu         sync.Mutex
	// notifyMu держится от изменения до конца вызова listener
	notifyMu sync.Mutex
}

// NewStore creates an interview store in the waiting state
func NewStore(client APIClient, st storage.Storage, loc Location, opts ...Option) *Store {
	s := &Store{
		client:       client,
		storage:      st,
		location:     loc,
		logger:       slog.Default(),
		openingDelay: DefaultOpeningDelay,
		endDelay:     DefaultEndDelay,
		state:        initialState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// update применяет fn под блокировкой и уведомляет подписчика
func (s *Store) update(fn func(st *State)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	s.version++
	s.state.Version = s.version
	s.state.Generation = s.generation
	snapshot := s.state.clone()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

func (s *Store) setLoading(text string) {
	s.update(func(st *State) {
		st.Loading = true
		st.LoadingText = text
		st.Error = ""
	})
}

func (s *Store) stopLoading() {
	s.update(func(st *State) {
		st.Loading = false
		st.LoadingText = LoadingDefault
	})
}

func (s *Store) setError(msg string) {
	s.update(func(st *State) { st.Error = msg })
}

func (s *Store) clearError() {
	s.update(func(st *State) { st.Error = "" })
}

func (s *Store) addMessage(m Message) {
	s.update(func(st *State) { st.Messages = append(st.Messages, m) })
}

// schedule runs fn after d unless the store is reset in the meantime
func (s *Store) schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generation
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		current := s.generation
		s.mu.Unlock()
		if current != gen {
			return
		}
		fn()
	})
	s.timers = append(s.timers, timer)
}

// InitSession reads the project and session ids from the location, loads
// the project and its AI configuration and creates a session when none
// exists yet. The new session id is saved to storage and written back
// into the location.
func (s *Store) InitSession(ctx context.Context) error {
	s.setLoading(LoadingConnecting)
	defer s.stopLoading()

	if err := s.initSession(ctx); err != nil {
		s.logger.Error("failed to init interview session", "error", err)
		s.setError("Failed to initialise session: " + err.Error())
		return err
	}
	return nil
}

func (s *Store) initSession(ctx context.Context) error {
	projectID := s.location.Param(ParamProjectID)
	sessionID := s.location.Param(ParamSessionID)
	if sessionID == "" {
		cached, err := storage.ValueOrEmpty(ctx, s.storage, storage.KeyInterviewSessionID)
		if err != nil {
			return fmt.Errorf("failed to read cached session id: %w", err)
		}
		sessionID = cached
	}

	s.update(func(st *State) {
		st.ProjectID = projectID
		st.SessionID = sessionID
	})

	if projectID == "" {
		return ErrMissingProjectID
	}

	visitorUUID, err := identity.GetParticipantID(ctx, s.storage, projectID)
	if err != nil {
		return err
	}
	s.update(func(st *State) { st.VisitorUUID = visitorUUID })

	s.logger.Debug("initialising interview session", "project_id", projectID, "session_id", sessionID)

	if err := s.FetchProjectAndAIConfig(ctx); err != nil {
		return err
	}

	if sessionID != "" {
		return nil
	}

	info := s.clientInfo
	info.VisitorUUID = visitorUUID
	resp, err := s.client.CreateSession(ctx, api.CreateSessionRequest{
		ProjectID:       projectID,
		VisitorUUID:     visitorUUID,
		IntervieweeInfo: info,
	})
	if err != nil {
		return err
	}
	sessionID = resp.SessionID.String()
	if sessionID == "" {
		return fmt.Errorf("backend returned no session id")
	}

	s.update(func(st *State) { st.SessionID = sessionID })

	if err := s.storage.Set(ctx, storage.KeyInterviewSessionID, sessionID); err != nil {
		return fmt.Errorf("failed to save session id: %w", err)
	}
	s.location.ReplaceParam(ParamSessionID, sessionID)

	s.logger.Info("interview session created", "session_id", sessionID, "project_id", projectID)
	return nil
}

// FetchProjectAndAIConfig loads the project, then the AI configuration it
// references. A failure is recorded and returned.
func (s *Store) FetchProjectAndAIConfig(ctx context.Context) error {
	s.setLoading(LoadingFetchingInfo)
	defer s.stopLoading()

	s.mu.Lock()
	projectID := s.state.ProjectID
	s.mu.Unlock()

	project, err := s.client.GetProject(ctx, projectID)
	if err != nil {
		s.setError("Failed to fetch interview info: " + err.Error())
		return err
	}
	s.update(func(st *State) { st.ProjectInfo = project })

	aiConfig, err := s.client.GetAIConfig(ctx, project.AIConfigID.String())
	if err != nil {
		s.setError("Failed to fetch interview info: " + err.Error())
		return err
	}
	s.update(func(st *State) { st.AIConfig = aiConfig })

	s.logger.Debug("interview info loaded", "project_id", projectID, "ai_config_id", project.AIConfigID.String())
	return nil
}

// StartMicCheck makes sure the project and AI configuration are loaded and
// moves to the interview page.
func (s *Store) StartMicCheck(ctx context.Context) error {
	s.setLoading(LoadingMicCheck)
	defer s.stopLoading()

	err := s.startMicCheck(ctx)
	if err != nil {
		s.setError("Cannot start interview: " + err.Error())
	}
	return err
}

func (s *Store) startMicCheck(ctx context.Context) error {
	s.mu.Lock()
	projectID := s.state.ProjectID
	loaded := s.state.ProjectInfo != nil && s.state.AIConfig != nil
	s.mu.Unlock()

	if projectID == "" {
		return ErrMissingProjectID
	}
	if !loaded {
		if err := s.FetchProjectAndAIConfig(ctx); err != nil {
			return err
		}
	}
	return s.GoToInterviewPage()
}

// GoToInterviewPage enters the interview page with an empty transcript.
// The connected notice and the AI opening message follow after the
// opening delay.
func (s *Store) GoToInterviewPage() error {
	var err error
	s.update(func(st *State) {
		if st.Page == PageEnd {
			err = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.Page, PageInterview)
			return
		}
		st.Page = PageInterview
		st.Messages = nil
	})
	if err != nil {
		return err
	}

	s.schedule(s.openingDelay, func() {
		opening := s.openingText()
		s.update(func(st *State) {
			// интервью могли завершить до приветствия
			if st.Page != PageInterview {
				return
			}
			st.Messages = append(st.Messages,
				Message{Type: MessageSystem, Content: ConnectedMessage},
				Message{Type: MessageAI, Content: opening},
			)
		})
	})
	return nil
}

func (s *Store) openingText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.AIConfig != nil && s.state.AIConfig.RoleSettings.OpeningText != "" {
		return s.state.AIConfig.RoleSettings.OpeningText
	}
	return OpeningFallback
}

// SendMessage appends the participant's message immediately, then asks the
// AI for a reply. Reports whether the AI answered.
func (s *Store) SendMessage(ctx context.Context, content string, isVoice bool) bool {
	s.clearError()
	s.addMessage(Message{Type: MessageUser, Content: content, IsVoice: isVoice})
	return s.CallAIAPI(ctx, content)
}

// UploadAudio transcribes a recording, appends the text as a voice message
// and asks the AI for a reply. A failed transcription adds an apology
// instead.
func (s *Store) UploadAudio(ctx context.Context, filename string, audio io.Reader) bool {
	s.clearError()

	result, err := s.client.SpeechToText(ctx, filename, audio)
	if err != nil {
		s.logger.Warn("speech-to-text failed", "error", err)
		s.addMessage(Message{Type: MessageAI, Content: SpeechApology})
		s.setError("Failed to process recording: " + err.Error())
		return false
	}

	s.addMessage(Message{Type: MessageUser, Content: result.Text, IsVoice: true})
	return s.CallAIAPI(ctx, result.Text)
}

// CallAIAPI sends content to the chat endpoint and appends the reply.
// Failures never propagate: an apology is appended and the error recorded.
// A reply containing the end marker moves to the end page after the end
// delay.
func (s *Store) CallAIAPI(ctx context.Context, content string) bool {
	s.setLoading(LoadingThinking)
	defer s.stopLoading()

	s.mu.Lock()
	sessionID := s.state.SessionID
	s.mu.Unlock()

	resp, err := s.client.Chat(ctx, api.ChatRequest{SessionID: sessionID, Content: content})
	if err != nil {
		s.logger.Warn("chat request failed", "session_id", sessionID, "error", err)
		s.addMessage(Message{Type: MessageAI, Content: ChatApology})
		s.setError("AI request failed: " + err.Error())
		return false
	}

	reply := resp.Reply
	if reply == "" {
		reply = EmptyReplyApology
	}
	s.addMessage(Message{Type: MessageAI, Content: reply})

	if strings.Contains(reply, EndMarker) {
		s.logger.Info("interviewer finished", "session_id", sessionID)
		endCtx := context.WithoutCancel(ctx)
		s.schedule(s.endDelay, func() {
			s.GoToEndPage(endCtx)
		})
	}
	return true
}

// GoToEndPage enters the end page and tells the backend the session is
// over. The backend call is best effort: a failure is only logged.
func (s *Store) GoToEndPage(ctx context.Context) {
	var sessionID string
	var already bool
	s.update(func(st *State) {
		already = st.Page == PageEnd
		st.Page = PageEnd
		sessionID = st.SessionID
	})

	if already || sessionID == "" {
		return
	}
	if err := s.client.EndSession(ctx, sessionID); err != nil {
		s.logger.Warn("failed to mark session ended", "session_id", sessionID, "error", err)
		return
	}
	s.logger.Info("session ended", "session_id", sessionID)
}

// InterruptAI stops the AI speaking and notes it in the transcript
func (s *Store) InterruptAI() {
	if s.speaker != nil {
		s.speaker.Cancel()
	}
	s.addMessage(Message{Type: MessageSystem, Content: InterruptedMessage})
}

// OpenTerminateModal asks the participant to confirm ending the interview
func (s *Store) OpenTerminateModal() {
	s.update(func(st *State) {
		st.ModalType = ModalTerminate
		st.ModalVisible = true
	})
}

// OpenShareModal shows the share link
func (s *Store) OpenShareModal() {
	s.update(func(st *State) {
		st.ModalType = ModalShare
		st.ModalVisible = true
	})
}

// CloseModal hides the modal without acting on it
func (s *Store) CloseModal() {
	s.update(func(st *State) { st.ModalVisible = false })
}

// ConfirmModalAction closes the modal; a terminate modal ends the interview
func (s *Store) ConfirmModalAction(ctx context.Context) {
	s.mu.Lock()
	modalType := s.state.ModalType
	s.mu.Unlock()

	if modalType == ModalTerminate {
		s.GoToEndPage(ctx)
	}
	s.CloseModal()
}

// ShareLink returns the interview link including the session id,
// or "" when the location cannot be printed
func (s *Store) ShareLink() string {
	if str, ok := s.location.(fmt.Stringer); ok {
		return str.String()
	}
	return ""
}

// ResetState cancels pending delayed actions and returns to the waiting page
func (s *Store) ResetState() {
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.generation++
	s.mu.Unlock()

	s.update(func(st *State) { *st = initialState() })
}

// State returns a snapshot of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Messages returns a copy of the transcript
func (s *Store) Messages() []Message {
	return s.State().Messages
}

// IsInterviewPage reports whether the chat is running
func (s *Store) IsInterviewPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Page == PageInterview
}

// IsEndPage reports whether the interview has ended
func (s *Store) IsEndPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Page == PageEnd
}

// HasError reports whether the last operation recorded an error
func (s *Store) HasError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Error != ""
}
