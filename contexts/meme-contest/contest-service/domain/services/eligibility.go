package services

import "artix/contexts/meme-contest/contest-service/domain/entities"

// EvaluateEligibility decides where entry sits in the mint lifecycle.
// attempt is the recorded registration for the entry, if any; inFlight is
// true while a mint for the entry is running in this process.
func EvaluateEligibility(
	entry entities.Entry,
	cfg entities.VotingConfiguration,
	attempt *entities.MintAttempt,
	inFlight bool,
) entities.Eligibility {
	result := entities.Eligibility{
		EntryID:        entry.ID,
		VoteCount:      entry.VoteCount,
		MinVotesForWin: cfg.MinVotesForWin,
	}
	if attempt != nil {
		result.RegistrationID = attempt.RegistrationID
	}

	switch {
	case entry.HasBeenMinted:
		result.State = entities.EligibilityMinted
	case inFlight || (attempt != nil && attempt.Orphaned()):
		result.State = entities.EligibilityRegistering
	case entry.VoteCount >= cfg.MinVotesForWin:
		result.State = entities.EligibilityEligible
	default:
		result.State = entities.EligibilityVoting
		result.VotesNeeded = cfg.MinVotesForWin - entry.VoteCount
	}
	return result
}
