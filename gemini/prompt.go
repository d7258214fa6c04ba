package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/gdg-paro/eventsync/model"
)

// promptEvent is the subset of event fields the model needs to judge
// relevance. Repository-owned fields (id, timestamps, attendee counts) are
// deliberately left out of the prompt.
type promptEvent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Department  string   `json:"department"`
	Club        string   `json:"club"`
	Tags        []string `json:"tags"`
}

// The prompt framing is a contract with the model, not free prose: the
// output-format block below is what makes the response parseable. Change it
// and parseRecommendations must change with it.
const promptTemplate = `You are an AI that recommends college events to students based on their interests.

Student Interests: %s

Event List:
%s

Return 3 events that best match the interests with a reason for each.
Format the result in JSON:
[
  {
    "title": "...",
    "reason": "...",
    "date": "...",
    "department": "...",
    "club": "...",
    "tags": ["..."],
    "score": 85
  }
]

Make sure the score is a number between 0-100 representing how well the event matches the student's interests.`

// BuildPrompt composes the instruction block sent to the model. It is
// deterministic: identical inputs always produce an identical string.
func BuildPrompt(interests string, events []*model.Event) string {
	list := make([]promptEvent, 0, len(events))
	for _, event := range events {
		list = append(list, promptEvent{
			Title:       event.Title,
			Description: event.Description,
			Date:        event.Date,
			Department:  event.Department,
			Club:        event.Club,
			Tags:        event.Tags,
		})
	}

	// Marshaling a slice of plain string fields cannot fail.
	serialized, _ := json.MarshalIndent(list, "", "  ")

	return fmt.Sprintf(promptTemplate, interests, serialized)
}
