package models

import "time"

// HiddenSignal is one detected communication pattern in a scanned message.
type HiddenSignal struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ScanResult is the structured output of the analysis engine.
// Scores are 0-100 integers; Replies is keyed by tone
// (soft_confident, playful, direct).
type ScanResult struct {
	InterestScore      int               `json:"interest_score"`
	RedFlagRisk        int               `json:"red_flag_risk"`
	EmotionalDistance  int               `json:"emotional_distance"`
	GhostProbability   int               `json:"ghost_probability"`
	ReplyWindow        string            `json:"reply_window"`
	Confidence         string            `json:"confidence"`
	HiddenSignalsCount int               `json:"hidden_signals_count"`
	HiddenSignals      []HiddenSignal    `json:"hidden_signals"`
	Archetype          string            `json:"archetype"`
	Summary            string            `json:"summary"`
	Replies            map[string]string `json:"replies"`
}

// Scan is one persisted analysis. Rows are immutable once written.
type Scan struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	MessageText string    `db:"message_text"`
	Direction   string    `db:"direction"`
	CreatedAt   time.Time `db:"created_at"`
	ScanResult
}

// PublicScan is the caller-facing projection of a Scan. Which fields carry
// data depends on whether the owning user is unlocked; the struct shape does
// not change.
type PublicScan struct {
	ID                 string            `json:"id"`
	CreatedAt          time.Time         `json:"created_at"`
	InterestScore      int               `json:"interest_score"`
	RedFlagRisk        int               `json:"red_flag_risk"`
	EmotionalDistance  int               `json:"emotional_distance"`
	GhostProbability   int               `json:"ghost_probability"`
	ReplyWindow        string            `json:"reply_window"`
	Confidence         string            `json:"confidence"`
	HiddenSignalsCount int               `json:"hidden_signals_count"`
	Archetype          string            `json:"archetype"`
	Summary            string            `json:"summary"`
	HiddenSignals      []HiddenSignal    `json:"hidden_signals"`
	Replies            map[string]string `json:"replies"`
	Locked             bool              `json:"locked"`
}

// Redact projects a Scan for a caller. Summary, archetype and the coarse
// scores stay visible either way; hidden signals and reply suggestions are
// emptied unless the user is unlocked.
func Redact(s Scan, unlocked bool) PublicScan {
	p := PublicScan{
		ID:                 s.ID,
		CreatedAt:          s.CreatedAt,
		InterestScore:      s.InterestScore,
		RedFlagRisk:        s.RedFlagRisk,
		EmotionalDistance:  s.EmotionalDistance,
		GhostProbability:   s.GhostProbability,
		ReplyWindow:        s.ReplyWindow,
		Confidence:         s.Confidence,
		HiddenSignalsCount: s.HiddenSignalsCount,
		Archetype:          s.Archetype,
		Summary:            s.Summary,
		HiddenSignals:      []HiddenSignal{},
		Replies:            map[string]string{},
		Locked:             !unlocked,
	}
	if unlocked {
		if s.HiddenSignals != nil {
			p.HiddenSignals = s.HiddenSignals
		}
		if s.Replies != nil {
			p.Replies = s.Replies
		}
	}
	return p
}
