// Package questionbank converts authored worksheet exercises into the flat,
// uniform question list the game engine runs on.
package questionbank

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"quizroom-service/internal/domain"
)

const maxOptions = 4

// Options control how generated questions are parameterized.
type Options struct {
	TimeLimit int // seconds per question
	Points    int // base points per question
	Seed      int64
}

// Bank generates questions from exercises. Distractor picks and option order
// come from a seeded source, so a fixed seed gives reproducible output.
type Bank struct {
	timeLimit int
	points    int
	rnd       *rand.Rand
}

func New(opts Options) *Bank {
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = 30
	}
	if opts.Points <= 0 {
		opts.Points = 100
	}
	return &Bank{
		timeLimit: opts.TimeLimit,
		points:    opts.Points,
		rnd:       rand.New(rand.NewSource(opts.Seed)),
	}
}

// Generate flattens the given exercises into questions, in input order.
// Exercises with missing or malformed content contribute zero questions;
// callers counting expected questions must account for that leniency.
func (b *Bank) Generate(exercises []domain.Exercise) []domain.Question {
	var questions []domain.Question
	for i, ex := range exercises {
		c, ok := decodeContent(ex)
		if !ok {
			continue
		}
		questions = append(questions, c.questions(b, ex, i+1)...)
	}
	return questions
}

// content is the decoded, type-specific payload of one exercise. New exercise
// types plug in as new variants implementing this interface.
type content interface {
	questions(b *Bank, ex domain.Exercise, ordinal int) []domain.Question
}

func decodeContent(ex domain.Exercise) (content, bool) {
	if len(ex.Content) == 0 {
		return nil, false
	}
	switch ex.Type {
	case domain.ExerciseQuiz:
		var c quizContent
		if json.Unmarshal(ex.Content, &c) != nil || len(c.Questions) == 0 {
			return nil, false
		}
		return c, true
	case domain.ExerciseMatching:
		var c matchingContent
		if json.Unmarshal(ex.Content, &c) != nil || len(c.Pairs) == 0 {
			return nil, false
		}
		return c, true
	case domain.ExerciseCategorization:
		var c categorizationContent
		if json.Unmarshal(ex.Content, &c) != nil || len(c.Items) == 0 || len(c.Categories) == 0 {
			return nil, false
		}
		return c, true
	}
	return nil, false
}

type quizContent struct {
	Questions []struct {
		Question       string   `json:"question"`
		Options        []string `json:"options"`
		CorrectIndex   *int     `json:"correctIndex"`
		CorrectIndices []int    `json:"correctIndices"`
	} `json:"questions"`
}

func (c quizContent) questions(b *Bank, ex domain.Exercise, ordinal int) []domain.Question {
	out := make([]domain.Question, 0, len(c.Questions))
	for i, q := range c.Questions {
		correct := q.CorrectIndices
		if len(correct) == 0 && q.CorrectIndex != nil {
			correct = []int{*q.CorrectIndex}
		}
		if len(q.Options) == 0 || !validIndices(correct, len(q.Options)) {
			continue
		}
		out = append(out, b.question(ex, ordinal, i, q.Question, q.Options, correct))
	}
	return out
}

type matchingContent struct {
	Pairs []struct {
		Left  string `json:"left"`
		Right string `json:"right"`
	} `json:"pairs"`
}

func (c matchingContent) questions(b *Bank, ex domain.Exercise, ordinal int) []domain.Question {
	out := make([]domain.Question, 0, len(c.Pairs))
	for i, p := range c.Pairs {
		if p.Left == "" || p.Right == "" {
			continue
		}
		others := make([]string, 0, len(c.Pairs)-1)
		for j, o := range c.Pairs {
			if j != i && o.Right != "" && o.Right != p.Right {
				others = append(others, o.Right)
			}
		}
		options, correct := b.buildOptions(p.Right, others)
		prompt := fmt.Sprintf("What belongs to: %s?", p.Left)
		out = append(out, b.question(ex, ordinal, i, prompt, options, correct))
	}
	return out
}

type categorizationContent struct {
	Categories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Items []struct {
		ID         string `json:"id"`
		Text       string `json:"text"`
		CategoryID string `json:"categoryId"`
	} `json:"items"`
}

func (c categorizationContent) questions(b *Bank, ex domain.Exercise, ordinal int) []domain.Question {
	names := make(map[string]string, len(c.Categories))
	for _, cat := range c.Categories {
		names[cat.ID] = cat.Name
	}
	out := make([]domain.Question, 0, len(c.Items))
	for i, item := range c.Items {
		trueName, ok := names[item.CategoryID]
		if !ok || item.Text == "" {
			continue
		}
		others := make([]string, 0, len(c.Categories)-1)
		for _, cat := range c.Categories {
			if cat.ID != item.CategoryID && cat.Name != trueName {
				others = append(others, cat.Name)
			}
		}
		options, correct := b.buildOptions(trueName, others)
		prompt := fmt.Sprintf("Which category does \"%s\" belong to?", item.Text)
		out = append(out, b.question(ex, ordinal, i, prompt, options, correct))
	}
	return out
}

// buildOptions mixes the correct option with up to three shuffled distractors
// and reports the correct option's position after shuffling.
func (b *Bank) buildOptions(correct string, distractors []string) ([]string, []int) {
	b.rnd.Shuffle(len(distractors), func(i, j int) {
		distractors[i], distractors[j] = distractors[j], distractors[i]
	})
	if len(distractors) > maxOptions-1 {
		distractors = distractors[:maxOptions-1]
	}
	options := append([]string{correct}, distractors...)
	b.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	for i, o := range options {
		if o == correct {
			return options, []int{i}
		}
	}
	return options, []int{0} // unreachable, correct is always present
}

func (b *Bank) question(ex domain.Exercise, ordinal, n int, text string, options []string, correct []int) domain.Question {
	return domain.Question{
		ID:             fmt.Sprintf("%s-q%d", ex.ID, n+1),
		Text:           fmt.Sprintf("Exercise %d: %s", ordinal, text),
		Options:        options,
		CorrectAnswers: correct,
		TimeLimit:      b.timeLimit,
		Points:         b.points,
		ImageURL:       ex.ImageURL,
		Instruction:    ex.Instruction,
	}
}

func validIndices(indices []int, optionCount int) bool {
	if len(indices) == 0 {
		return false
	}
	for _, idx := range indices {
		if idx < 0 || idx >= optionCount {
			return false
		}
	}
	return true
}
