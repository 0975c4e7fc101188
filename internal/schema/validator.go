// Package schema defines and validates the request bodies of the coaching API.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/models"
)

var (
	ErrTextRequired       = errors.New("text required")
	ErrUtterancesRequired = errors.New("utterances[] required")
	ErrInvalidUtterance   = errors.New("invalid utterance")
	ErrUnknownRequest     = errors.New("unknown request type")
)

// AnalyzeRequest is the body of a manual analyze call.
type AnalyzeRequest struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// SummaryRequest is the body of a recap call.
type SummaryRequest struct {
	Utterances []models.Utterance `json:"utterances"`
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks a decoded request body.
func (v *Validator) Validate(req any) error {
	var err error
	switch r := req.(type) {
	case *AnalyzeRequest:
		err = validateAnalyze(r)
	case *SummaryRequest:
		err = validateSummary(r)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}
	if err != nil {
		log.Debug().Err(err).Msg("Request rejected")
	}
	return err
}

func validateAnalyze(r *AnalyzeRequest) error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrTextRequired
	}
	return nil
}

func validateSummary(r *SummaryRequest) error {
	if len(r.Utterances) == 0 {
		return ErrUtterancesRequired
	}
	for i, u := range r.Utterances {
		if u.Side != models.SideCustomer && u.Side != models.SideOwner {
			return fmt.Errorf("%w: utterances[%d].speaker must be customer or owner", ErrInvalidUtterance, i)
		}
		if u.Text == "" {
			return fmt.Errorf("%w: utterances[%d].text is empty", ErrInvalidUtterance, i)
		}
	}
	return nil
}
