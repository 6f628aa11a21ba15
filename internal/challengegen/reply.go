package challengegen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// rawChallenge is the provider reply before normalization. Replies name the
// answer index either correctIndex or correctAnswerIndex; exactly one
// spelling is expected, both are tolerated when they agree.
type rawChallenge struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectIndex       *int     `json:"correctIndex"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

var errMissingIndex = errors.New("reply has no correctIndex or correctAnswerIndex")

func parseReply(content json.RawMessage) (*Challenge, error) {
	var raw rawChallenge
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	return raw.normalize()
}

func (r rawChallenge) normalize() (*Challenge, error) {
	var idx int
	switch {
	case r.CorrectIndex != nil && r.CorrectAnswerIndex != nil:
		if *r.CorrectIndex != *r.CorrectAnswerIndex {
			return nil, fmt.Errorf("reply has conflicting answer indexes %d and %d",
				*r.CorrectIndex, *r.CorrectAnswerIndex)
		}
		idx = *r.CorrectIndex
	case r.CorrectIndex != nil:
		idx = *r.CorrectIndex
	case r.CorrectAnswerIndex != nil:
		idx = *r.CorrectAnswerIndex
	default:
		return nil, errMissingIndex
	}

	options := make([]string, len(r.Options))
	for i, o := range r.Options {
		options[i] = strings.TrimSpace(o)
	}

	return &Challenge{
		Question:     strings.TrimSpace(r.Question),
		Options:      options,
		CorrectIndex: idx,
		Explanation:  strings.TrimSpace(r.Explanation),
	}, nil
}
