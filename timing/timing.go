// Package timing collects per-paper and per-question phase durations
// and merges them into the shared timing.json file under a lock, so
// parallel PDF extractions can all contribute without clobbering each
// other.
package timing

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/declanmoore/examcache/writer"
)

// Log accumulates timings for one PDF's extraction run.
type Log struct {
	PaperTimings    map[string]float64            `json:"paper_timings"`
	QuestionTimings map[string]map[string]float64 `json:"question_timings"`
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{PaperTimings: map[string]float64{}, QuestionTimings: map[string]map[string]float64{}}
}

// LogPaper records a paper-level (not tied to one question) phase
// duration.
func (l *Log) LogPaper(phase string, d time.Duration) {
	l.PaperTimings[phase] = d.Seconds()
}

// LogQuestion records a per-question phase duration.
func (l *Log) LogQuestion(questionID, phase string, d time.Duration) {
	if l.QuestionTimings[questionID] == nil {
		l.QuestionTimings[questionID] = map[string]float64{}
	}
	l.QuestionTimings[questionID][phase] = d.Seconds()
}

// Phase times fn and records it under phase (paper-level if questionID
// is empty, question-level otherwise), grounded on the original
// timed_phase context manager.
func (l *Log) Phase(phase, questionID string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if questionID == "" {
		l.LogPaper(phase, elapsed)
	} else {
		l.LogQuestion(questionID, phase, elapsed)
	}
	return err
}

type document struct {
	PaperTimings     map[string]float64            `json:"paper_timings"`
	QuestionTimings  map[string]map[string]float64 `json:"question_timings"`
	PhaseAverages    map[string]float64             `json:"phase_averages"`
	SlowestQuestions []slowestEntry                 `json:"slowest_questions"`
}

type slowestEntry struct {
	ID            string  `json:"id"`
	Total         float64 `json:"total"`
	SlowestPhase  string  `json:"slowest_phase"`
	PhaseDuration float64 `json:"phase_duration"`
}

// Save merges l into the shared timing.json at path under an exclusive
// lock: paper_timings are overwritten by key, question_timings are
// added/overwritten by question ID, and phase_averages/slowest_questions
// are recomputed from the merged whole.
func (l *Log) Save(path string, lockTimeout time.Duration) error {
	return writer.LockedReadModifyWrite(path, lockTimeout, func(existing []byte) ([]byte, error) {
		doc := document{PaperTimings: map[string]float64{}, QuestionTimings: map[string]map[string]float64{}}
		if len(existing) > 0 {
			if err := json.Unmarshal(existing, &doc); err != nil {
				return nil, err
			}
			if doc.PaperTimings == nil {
				doc.PaperTimings = map[string]float64{}
			}
			if doc.QuestionTimings == nil {
				doc.QuestionTimings = map[string]map[string]float64{}
			}
		}

		for k, v := range l.PaperTimings {
			doc.PaperTimings[k] = v
		}
		for qid, phases := range l.QuestionTimings {
			doc.QuestionTimings[qid] = phases
		}

		doc.PhaseAverages = phaseAverages(doc.QuestionTimings)
		doc.SlowestQuestions = slowestQuestions(doc.QuestionTimings, 5)

		return json.MarshalIndent(doc, "", "  ")
	})
}

func phaseAverages(questionTimings map[string]map[string]float64) map[string]float64 {
	totals := map[string]float64{}
	counts := map[string]int{}
	for _, phases := range questionTimings {
		for phase, d := range phases {
			totals[phase] += d
			counts[phase]++
		}
	}
	out := map[string]float64{}
	for phase, total := range totals {
		out[phase] = total / float64(counts[phase])
	}
	return out
}

func slowestQuestions(questionTimings map[string]map[string]float64, n int) []slowestEntry {
	var out []slowestEntry
	for qid, phases := range questionTimings {
		total := 0.0
		slowPhase := ""
		slowDur := -1.0
		for phase, d := range phases {
			total += d
			if d > slowDur {
				slowDur = d
				slowPhase = phase
			}
		}
		out = append(out, slowestEntry{ID: qid, Total: total, SlowestPhase: slowPhase, PhaseDuration: slowDur})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
