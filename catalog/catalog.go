// Package catalog appends question records to questions.jsonl
// (schema version 9) under the shared file lock every parallel PDF
// extraction writes through.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/declanmoore/examcache/model"
	"github.com/declanmoore/examcache/writer"
)

const schemaVersion = 9

// Record is one line of questions.jsonl.
type Record struct {
	SchemaVersion  int      `json:"schema_version"`
	QuestionID     string   `json:"question_id"`
	ExamCode       string   `json:"exam_code"`
	Year           int      `json:"year"`
	Paper          int      `json:"paper"`
	Variant        int      `json:"variant"`
	QuestionNumber int      `json:"question_number"`
	TotalMarks     int      `json:"total_marks"`
	PartCount      int      `json:"part_count"`
	Topic          string   `json:"topic"`
	RelativePath   string   `json:"relative_path"`
	IsValid        bool     `json:"is_valid"`
	SubTopics      []string `json:"sub_topics,omitempty"`
	ChildTopics    map[string]string `json:"child_topics,omitempty"`
	RootText       string   `json:"root_text,omitempty"`
	ChildText      map[string]string `json:"child_text,omitempty"`
	MarkSchemePath string   `json:"markscheme_path,omitempty"`
}

// RecordOf builds the questions.jsonl record for q and its detected
// question number (not stored on model.Question itself).
func RecordOf(q model.Question, questionNumber int) Record {
	return Record{
		SchemaVersion:  schemaVersion,
		QuestionID:     q.ID,
		ExamCode:       q.ExamCode,
		Year:           q.Year,
		Paper:          q.Paper,
		Variant:        q.Variant,
		QuestionNumber: questionNumber,
		TotalMarks:     q.TotalMarks(),
		PartCount:      q.PartCount(),
		Topic:          q.Topic,
		RelativePath:   q.RelativePath(),
		IsValid:        q.IsValid,
		SubTopics:      q.SubTopics,
		ChildTopics:    q.ChildTopics,
		RootText:       q.RootText,
		ChildText:      q.ChildText,
		MarkSchemePath: q.MarkSchemePath,
	}
}

// Append marshals r as one JSON line and appends it to path under an
// exclusive lock, so multiple PDFs extracting in parallel never
// interleave partial lines.
func Append(path string, r Record, lockTimeout time.Duration) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("catalog: marshaling %s: %w", r.QuestionID, err)
	}
	return writer.AppendJSONLLocked(path, line, lockTimeout)
}
