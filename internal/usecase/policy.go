package usecase

import (
	"time"

	"github.com/seedlane/outreach/internal/config"
	"github.com/seedlane/outreach/internal/entity"
)

// Action is the sequence policy's verdict for one lead at one instant.
type Action int

const (
	// ActionSkip: lead is terminal or otherwise not ours to touch.
	ActionSkip Action = iota
	// ActionSendFirst: never contacted, eligible for email 1 now.
	ActionSendFirst
	// ActionSendFollowup: active and next_send_at has passed.
	ActionSendFollowup
	// ActionWait: active but the follow-up is not due yet.
	ActionWait
	// ActionComplete: the final step was already sent; close the sequence.
	ActionComplete
)

// Decide is the pure scheduling decision: no I/O, no clock reads, fully
// determined by the lead snapshot and the injected now.
func Decide(lead *entity.Lead, now time.Time) Action {
	switch lead.Status {
	case entity.StatusNew:
		return ActionSendFirst

	case entity.StatusActive:
		if lead.CurrentStep >= entity.FinalStep {
			return ActionComplete
		}
		if lead.NextSendAt == nil {
			// Active lead with no schedule is an invariant violation;
			// leave it alone rather than guess.
			return ActionSkip
		}
		if !now.Before(*lead.NextSendAt) {
			return ActionSendFollowup
		}
		return ActionWait

	default:
		return ActionSkip
	}
}

// NextSendAt computes when the follow-up to stepJustSent is due. The
// final step has no follow-up and returns nil.
func NextSendAt(stepJustSent int, now time.Time, s config.Settings) *time.Time {
	var delay time.Duration

	switch stepJustSent {
	case 1:
		delay = s.Email2Delay()
	case 2:
		delay = s.Email3Delay()
	default:
		return nil
	}

	t := now.Add(delay)
	return &t
}
