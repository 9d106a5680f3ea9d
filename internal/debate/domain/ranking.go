package domain

import (
	"errors"
	"sort"
)

var (
	// ErrRankingWrongCount indicates the rank list does not cover exactly four teams.
	ErrRankingWrongCount = errors.New("ranking must cover exactly four teams")
	// ErrRankingUnknownTeam indicates a rank entry for a team outside the roster.
	ErrRankingUnknownTeam = errors.New("ranking names an unknown team")
	// ErrRankingDuplicateTeam indicates the same team appears more than once.
	ErrRankingDuplicateTeam = errors.New("ranking repeats a team")
	// ErrRankingInvalidRank indicates ranks are not a permutation of 1..4.
	ErrRankingInvalidRank = errors.New("ranks must be a permutation of 1 to 4")
)

// RankedTeam is one externally adjudicated (team, rank, reasoning) triple.
type RankedTeam struct {
	Team      Team
	Rank      int
	Reasoning string
}

// TeamResult is a ranked team annotated with its score total.
type TeamResult struct {
	Team       Team
	Rank       int
	TotalScore float64
	Reasoning  string
}

// AggregateResults derives the four team results from the eight speakers and
// an externally supplied rank list. Each team's total is the sum of its two
// speakers' scores; an incomplete speaker contributes exactly zero rather
// than being omitted or averaged. Rank and reasoning pass through verbatim.
//
// The rank list must cover the four known teams exactly once with ranks
// forming a permutation of {1,2,3,4}; anything else is rejected without
// producing output.
func AggregateResults(speakers []Speaker, ranked []RankedTeam) ([]TeamResult, error) {
	if len(ranked) != len(Teams()) {
		return nil, ErrRankingWrongCount
	}

	seenTeams := make(map[Team]bool, len(ranked))
	seenRanks := make(map[int]bool, len(ranked))
	for _, r := range ranked {
		if !r.Team.Valid() {
			return nil, ErrRankingUnknownTeam
		}
		if seenTeams[r.Team] {
			return nil, ErrRankingDuplicateTeam
		}
		seenTeams[r.Team] = true
		if r.Rank < 1 || r.Rank > 4 || seenRanks[r.Rank] {
			return nil, ErrRankingInvalidRank
		}
		seenRanks[r.Rank] = true
	}

	totals := make(map[Team]float64, len(Teams()))
	for _, sp := range speakers {
		if !sp.Completed {
			continue
		}
		totals[sp.Team] += sp.Score
	}

	results := make([]TeamResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, TeamResult{
			Team:       r.Team,
			Rank:       r.Rank,
			TotalScore: totals[r.Team],
			Reasoning:  r.Reasoning,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })
	return results, nil
}
