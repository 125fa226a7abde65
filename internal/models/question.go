package models

// QuestionRecord is one multiple-choice quiz question. Records are built
// once when a quiz file is loaded and are never mutated afterwards; the ID
// is the record's stable position in the loaded question list.
//
// CorrectChoice and ImagePrompt are kept out of JSON responses so the web
// layer never leaks the answer or the generation prompt to the client.
type QuestionRecord struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectChoice int      `json:"-"`
	ImagePrompt   string   `json:"-"`
}
