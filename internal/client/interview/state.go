package interview

import "github.com/iudanet/aiinterview/pkg/api"

// Page is a step of the interview flow. Pages only move forward:
// waiting, then interview, then end.
type Page string

const (
	PageWaiting   Page = "waiting"
	PageInterview Page = "interview"
	PageEnd       Page = "end"
)

// ModalType определяет назначение модального окна
type ModalType string

const (
	ModalTerminate ModalType = "terminate"
	ModalShare     ModalType = "share"
)

// MessageType - автор сообщения в ленте
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageAI     MessageType = "ai"
	MessageSystem MessageType = "system"
)

// Message is one entry of the conversation transcript
type Message struct {
	Type    MessageType
	Content string
	IsVoice bool
}

// EndMarker in an AI reply means the interviewer has finished
const EndMarker = "[END]"

// Тексты, которые клиент подставляет сам
const (
	OpeningFallback     = "Hello, I'm the AI interview assistant. Glad to chat with you today."
	ConnectedMessage    = "Connected to the AI interview assistant"
	InterruptedMessage  = "AI speech interrupted"
	ChatApology         = "Sorry, I drifted off, could you say that again?"
	SpeechApology       = "Sorry, I couldn't recognise your voice, please type or retry."
	EmptyReplyApology   = "Sorry, I can't answer that right now."
	LoadingConnecting   = "Connecting to interview server..."
	LoadingFetchingInfo = "Fetching interview info..."
	LoadingMicCheck     = "Checking microphone..."
	LoadingThinking     = "AI is thinking..."
	LoadingDefault      = "Loading..."
)

// State is a snapshot of the interview session
type State struct {
	ProjectInfo  *api.ProjectInfo
	AIConfig     *api.AIConfig
	Page         Page
	ModalType    ModalType
	ProjectID    string
	SessionID    string
	VisitorUUID  string
	LoadingText  string
	Error        string
	Messages     []Message
	// Version растет с каждым изменением; снимок с меньшим Version устарел
	Version uint64
	// Generation меняется при ResetState
	Generation   uint64
	ModalVisible bool
	Loading      bool
}

func initialState() State {
	return State{
		Page:        PageWaiting,
		ModalType:   ModalTerminate,
		LoadingText: LoadingConnecting,
	}
}

// clone копирует состояние вместе с лентой сообщений
func (s State) clone() State {
	s.Messages = append([]Message(nil), s.Messages...)
	return s
}
