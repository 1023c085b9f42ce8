package chat

import (
	"errors"
	"fmt"
	"time"
)

type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Source is a citation returned by the answering service. It is display-only.
type Source struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Entry is one line of a chat transcript.
type Entry struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources"`
}

type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

const DefaultModelID = "deepseek/deepseek-r1-0528:free"

// DefaultModels is offered when the answering service cannot list its models.
func DefaultModels() []Model {
	return []Model{{ID: DefaultModelID, Name: "DeepSeek R1", Provider: "OpenRouter"}}
}

const (
	// DeniedAnswer replaces an empty answer. It must not confirm that the data exists.
	DeniedAnswer     = "I don't have access to that information for your current role. You may not have permission to view this data."
	unavailableReply = "Sorry, I encountered an error. Please try again later."
)

var (
	ErrUnavailable     = errors.New("chat: answering service unavailable")
	ErrRequestInFlight = errors.New("chat: a request is already in flight for this session")
)

// ServiceError is a non-success answer from the answering service.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("chat: answering service returned %d: %s", e.Status, e.Body)
}

// Reply is the transcript text shown for this failure.
func (e *ServiceError) Reply() string {
	return fmt.Sprintf("Sorry, I encountered an error processing your request. Error: %d %s", e.Status, e.Body)
}

// State is the per-session request state: Idle -> Pending -> Resolved | Failed.
type State string

const (
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateResolved State = "resolved"
	StateFailed   State = "failed"
)

// answerRequest is the answering service request body.
type answerRequest struct {
	Query        queryBody    `json:"query"`
	ModelRequest modelRequest `json:"model_request"`
}

type queryBody struct {
	Query string `json:"query"`
}

type modelRequest struct {
	Model      string `json:"model"`
	UseHistory bool   `json:"use_history"`
}

type answerResponse struct {
	Answer          string   `json:"answer"`
	SourceDocuments []Source `json:"source_documents"`
}
