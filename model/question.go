package model

import "fmt"

// QuestionStart is a detected top-level question number, emitted by the
// numeral detector.
type QuestionStart struct {
	Number       int
	Page         int // 0-indexed
	Y            float64
	BBox         PixelRect
	IsPseudocode bool
}

// Question aggregates a Part tree plus the metadata the writer persists.
type Question struct {
	ID       string
	ExamCode string
	Year     int
	Paper    int
	Variant  int

	Topic string
	// ChildTopics maps part labels to their own classified topics when
	// they differ from (or refine) the question topic; SubTopics is the
	// deduplicated set of those values.
	ChildTopics map[string]string
	SubTopics   []string

	Root Part

	CompositePath  string
	RegionsPath    string
	MarkSchemePath string

	NumeralBBox   PixelRect
	HasNumeralBBox bool
	MarkBBoxes    []PixelRect

	HorizontalOffset int

	RootText  string
	ChildText map[string]string

	IsValid            bool
	ValidationFailures []string
}

// NewQuestion validates and constructs a Question.
//
// A question is invalid as a whole only when it has no bounds, no leaf
// parts, or a totally missing structure — individual invalid
// leaves do not invalidate the whole question.
func NewQuestion(id, examCode string, year, paper, variant int, root Part) (Question, error) {
	if len(examCode) != 4 {
		return Question{}, fmt.Errorf("model: exam code %q must be 4 digits", examCode)
	}
	if year < 2000 || year > 2100 {
		return Question{}, fmt.Errorf("model: year %d out of range [2000,2100]", year)
	}
	if paper < 1 || paper > 9 {
		return Question{}, fmt.Errorf("model: paper %d out of range [1,9]", paper)
	}
	if variant < 1 || variant > 9 {
		return Question{}, fmt.Errorf("model: variant %d out of range [1,9]", variant)
	}
	if root.Kind() != QuestionKind {
		return Question{}, fmt.Errorf("model: question root must have kind Question, got %s", root.Kind())
	}

	q := Question{
		ID:        id,
		ExamCode:  examCode,
		Year:      year,
		Paper:     paper,
		Variant:   variant,
		Root:      root,
		ChildText: map[string]string{},
		IsValid:   true,
	}

	if len(root.Leaves()) == 0 {
		q.IsValid = false
		q.ValidationFailures = append(q.ValidationFailures, "no leaf parts detected")
	}

	return q, nil
}

// TotalMarks recomputes the question's total mark value from its tree.
func (q Question) TotalMarks() int { return q.Root.TotalMarks() }

// PartCount returns the number of parts in the tree (root + descendants).
func (q Question) PartCount() int {
	n := 0
	q.Root.Walk(func(Part) { n++ })
	return n
}

// RelativePath mirrors the questions.jsonl "relative_path" field:
// exam_code/topic/question_id.
func (q Question) RelativePath() string {
	topic := q.Topic
	if topic == "" {
		topic = "unclassified"
	}
	return q.ExamCode + "/" + topic + "/" + q.ID
}
