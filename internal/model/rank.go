package model

import (
	"fmt"
	"strings"
)

// Rank is a quest's difficulty tier.
type Rank string

const (
	RankCommon    Rank = "Common"
	RankRare      Rank = "Rare"
	RankEpic      Rank = "Epic"
	RankLegendary Rank = "Legendary"
)

var Ranks = []Rank{RankCommon, RankRare, RankEpic, RankLegendary}

func (r Rank) Valid() bool {
	switch r {
	case RankCommon, RankRare, RankEpic, RankLegendary:
		return true
	default:
		return false
	}
}

// ParseRank is case-insensitive.
func ParseRank(s string) (Rank, error) {
	s = strings.TrimSpace(s)
	for _, r := range Ranks {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown rank %q", s)
}

// XPTable maps a rank to the XP awarded on completion.
type XPTable map[Rank]int

func DefaultXPTable() XPTable {
	return XPTable{
		RankCommon:    25,
		RankRare:      50,
		RankEpic:      75,
		RankLegendary: 100,
	}
}

// XP falls back to the default table for ranks the table does not list.
func (t XPTable) XP(r Rank) int {
	if v, ok := t[r]; ok {
		return v
	}
	return DefaultXPTable()[r]
}
