package quizfile

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"organ-quiz-service/internal/models"
)

// minTopics is the smallest usable topic list: one correct answer plus
// three wrong options per question.
const minTopics = 4

const questionPrompt = "Which of these is shown in the illustration?"

// Load reads a topic-per-line quiz file and builds one multiple-choice
// question per topic. Blank lines and surrounding whitespace are ignored.
func Load(path string) ([]models.QuestionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quiz file: %w", err)
	}
	defer f.Close()

	var topics []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			topics = append(topics, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read quiz file: %w", err)
	}

	records, err := Build(topics)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Build turns a list of topics into question records. Each topic becomes
// the correct answer of one question, with three wrong options drawn from
// the other topics and the four choices shuffled.
func Build(topics []string) ([]models.QuestionRecord, error) {
	if len(topics) < minTopics {
		return nil, fmt.Errorf("quiz needs at least %d topics, got %d", minTopics, len(topics))
	}

	records := make([]models.QuestionRecord, 0, len(topics))
	for i, topic := range topics {
		choices := append([]string{topic}, sampleOthers(topics, i, minTopics-1)...)
		rand.Shuffle(len(choices), func(a, b int) {
			choices[a], choices[b] = choices[b], choices[a]
		})

		correct := 0
		for j, c := range choices {
			if c == topic {
				correct = j
				break
			}
		}

		records = append(records, models.QuestionRecord{
			ID:            i,
			Prompt:        questionPrompt,
			Choices:       choices,
			CorrectChoice: correct,
			ImagePrompt:   fmt.Sprintf("A clear medical illustration of the human %s.", strings.ToLower(topic)),
		})
	}
	return records, nil
}

// sampleOthers picks n distinct topics other than the one at index skip.
func sampleOthers(topics []string, skip, n int) []string {
	others := make([]string, 0, len(topics)-1)
	for i, t := range topics {
		if i != skip {
			others = append(others, t)
		}
	}
	rand.Shuffle(len(others), func(a, b int) {
		others[a], others[b] = others[b], others[a]
	})
	return others[:n]
}
