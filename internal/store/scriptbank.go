package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/instasitebuilder/code-mentor-platform/internal/interview"
	"github.com/instasitebuilder/code-mentor-platform/internal/trace"
)

// ScriptBank serves questions from a YAML script file, for local and
// offline sessions. Question templates may use {company_name} and
// {position} placeholders, resolved against the configured details.
type ScriptBank struct {
	path    string
	details interview.Details
}

type scriptFile struct {
	Questions []scriptQuestion `yaml:"questions"`
}

type scriptQuestion struct {
	ID       string `yaml:"id"`
	Question string `yaml:"question"`
}

// NewScriptBank creates a bank over a script file.
func NewScriptBank(path string, details interview.Details) *ScriptBank {
	return &ScriptBank{path: path, details: details}
}

// Fetch reads and validates the script. Every failure is a failed load;
// the caller does not retry.
func (b *ScriptBank) Fetch(ctx context.Context, interviewID string) (*interview.Script, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read script: %v", interview.ErrLoadFailed, err)
	}

	var file scriptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse script: %v", interview.ErrLoadFailed, err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("%w: script has no questions", interview.ErrLoadFailed)
	}

	seen := make(map[string]struct{}, len(file.Questions))
	questions := make([]interview.Question, 0, len(file.Questions))
	for i, sq := range file.Questions {
		if strings.TrimSpace(sq.Question) == "" {
			return nil, fmt.Errorf("%w: question %d is empty", interview.ErrLoadFailed, i+1)
		}
		id := sq.ID
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", interview.ErrLoadFailed, id)
		}
		seen[id] = struct{}{}
		questions = append(questions, interview.Question{
			ID:      id,
			Text:    resolvePlaceholders(sq.Question, b.details),
			Ordinal: i,
		})
	}

	trace.Logger(ctx).Debug("script loaded",
		"path", b.path, "interview_id", interviewID, "questions", len(questions))
	return &interview.Script{Details: b.details, Questions: questions}, nil
}

// resolvePlaceholders substitutes interview details into a question
// template.
func resolvePlaceholders(text string, d interview.Details) string {
	r := strings.NewReplacer(
		"{company_name}", d.Company,
		"{position}", d.Position,
	)
	return r.Replace(text)
}
