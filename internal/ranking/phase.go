package ranking

import "feedranker/internal/domain"

// OnboardingVoteThreshold is the non-zero vote count at which a user moves
// from onboarding to adoption. Saves never count toward it.
const OnboardingVoteThreshold = 10

// SelectPhase derives the ranking phase from the current authentication
// state and vote count. There is no stored machine: the phase is recomputed
// on every request, and because vote rows are never deleted the derivation
// is monotonic — a user who reached adoption stays there.
func SelectPhase(authenticated bool, voteCount int) domain.Phase {
	if !authenticated {
		return domain.PhaseLoggedOut
	}
	if voteCount < OnboardingVoteThreshold {
		return domain.PhaseOnboarding
	}
	return domain.PhaseAdoption
}

// CountPhaseVotes counts the votes that gate the phase transition:
// rows with a non-zero value. Retracted votes do not count.
func CountPhaseVotes(votes []domain.Vote) int {
	n := 0
	for _, v := range votes {
		if v.Value != domain.VoteRetracted {
			n++
		}
	}
	return n
}
