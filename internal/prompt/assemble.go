// Package prompt turns stored history, extracted file text and the static
// knowledge base into a single bounded prompt string, and cleans model output
// before it reaches the user. Everything here is a pure function of its
// inputs so it stays independently testable.
package prompt

import (
	"fmt"
	"strings"

	"github.com/shopdesk/supportbot/internal/knowledge"
	"github.com/shopdesk/supportbot/internal/models"
)

// HistoryWindow caps how many prior messages are included in a prompt. The
// instruction block anchors the end of the static context; an unbounded
// history would push it out of the model's effective attention window.
const HistoryWindow = 25

const (
	// CatalogPreamble opens prompts for the public widget endpoint.
	CatalogPreamble = "You are an eCommerce assistant. Use the following data to answer queries succinctly:"
	// SupportPreamble opens prompts for the authenticated assistant.
	SupportPreamble = "You are a customer support assistant. Use the following company data to answer queries succinctly:"
)

const instructions = `Instructions:
- Keep responses short and crisp (maximum 50 words).
- Avoid redundant text or excessive formatting (e.g., "**", "*").
- Use bullet points or simple sentences for readability.`

const describeFileMessage = "Please describe the contents of the uploaded file."

// Input carries everything that goes into one prompt. History may be longer
// than the window; Assemble trims it to the most recent HistoryWindow entries.
type Input struct {
	Preamble    string
	Documents   []knowledge.Document
	History     []models.Message
	FileText    string
	UserMessage string
}

// Assemble concatenates the prompt sections in fixed order: knowledge
// context, file context, instructions, conversation turns, new user message,
// empty assistant marker. Empty sections are omitted outright so no dangling
// separators appear.
func Assemble(in Input) string {
	sections := make([]string, 0, 5)

	if preamble := strings.TrimSpace(in.Preamble); preamble != "" {
		sections = append(sections, preamble)
	}

	if len(in.Documents) > 0 {
		blocks := make([]string, 0, len(in.Documents))
		for _, doc := range in.Documents {
			blocks = append(blocks, doc.Block())
		}
		sections = append(sections, strings.Join(blocks, "\n\n"))
	}

	fileText := strings.TrimSpace(in.FileText)
	if fileText != "" {
		sections = append(sections, "File content:\n"+fileText)
	}

	sections = append(sections, instructions)

	userMessage := strings.TrimSpace(in.UserMessage)
	if userMessage == "" && fileText != "" {
		// A bare upload is a request to describe the file.
		userMessage = describeFileMessage
	}

	turns := make([]string, 0, HistoryWindow+2)
	for _, msg := range Window(in.History, HistoryWindow) {
		turns = append(turns, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	turns = append(turns, "user: "+userMessage, "assistant:")
	sections = append(sections, strings.Join(turns, "\n"))

	return strings.Join(sections, "\n\n")
}

// Window returns the most recent limit messages, oldest-first. The slice
// aliases the input; callers must not mutate it.
func Window(messages []models.Message, limit int) []models.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}
