package taxon

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the taxonomic status of a name usage.
type Status string

const (
	StatusUnknown               Status = ""
	StatusAccepted              Status = "ACCEPTED"
	StatusProvisionallyAccepted Status = "PROVISIONALLY_ACCEPTED"
	StatusSynonym               Status = "SYNONYM"
	StatusAmbiguousSynonym      Status = "AMBIGUOUS_SYNONYM"
	StatusMisapplied            Status = "MISAPPLIED"
	StatusBareName              Status = "BARE_NAME"
)

var knownStatuses = []Status{
	StatusAccepted,
	StatusProvisionallyAccepted,
	StatusSynonym,
	StatusAmbiguousSynonym,
	StatusMisapplied,
	StatusBareName,
}

// IsDefined reports whether the status carries a value.
func (s Status) IsDefined() bool {
	return s != StatusUnknown
}

// IsSynonym reports whether the usage points at an accepted parent.
// Misapplied names count as synonyms.
func (s Status) IsSynonym() bool {
	switch s {
	case StatusSynonym, StatusAmbiguousSynonym, StatusMisapplied:
		return true
	default:
		return false
	}
}

// IsMisapplied reports whether the usage is a misapplied name.
func (s Status) IsMisapplied() bool {
	return s == StatusMisapplied
}

// ParseStatus accepts the enum name in any case, with spaces, hyphens or
// underscores as separators. Blank input yields StatusUnknown.
func ParseStatus(value string) (Status, error) {
	key := enumKey(value)
	if key == "" {
		return StatusUnknown, nil
	}
	for _, s := range knownStatuses {
		if string(s) == key {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown taxonomic status %q", value)
}

// Rank is a taxonomic rank. The vocabulary is open; ranks compare by their
// normalized enum name.
type Rank string

const (
	RankUnranked   Rank = ""
	RankKingdom    Rank = "KINGDOM"
	RankPhylum     Rank = "PHYLUM"
	RankClass      Rank = "CLASS"
	RankOrder      Rank = "ORDER"
	RankFamily     Rank = "FAMILY"
	RankTribe      Rank = "TRIBE"
	RankGenus      Rank = "GENUS"
	RankSubgenus   Rank = "SUBGENUS"
	RankSpecies    Rank = "SPECIES"
	RankSubspecies Rank = "SUBSPECIES"
	RankVariety    Rank = "VARIETY"
	RankForm       Rank = "FORM"
)

// ParseRank normalizes a rank name. Unknown ranks are kept verbatim in their
// normalized form.
func ParseRank(value string) Rank {
	return Rank(enumKey(value))
}

// MatchType grades how a usage was assigned to its names index cluster.
type MatchType string

const (
	MatchNone        MatchType = "NONE"
	MatchExact       MatchType = "EXACT"
	MatchVariant     MatchType = "VARIANT"
	MatchCanonical   MatchType = "CANONICAL"
	MatchAmbiguous   MatchType = "AMBIGUOUS"
	MatchUnsupported MatchType = "UNSUPPORTED"
)

// ParseMatchType normalizes a match type; blank input yields MatchNone.
func ParseMatchType(value string) (MatchType, error) {
	key := enumKey(value)
	switch MatchType(key) {
	case "":
		return MatchNone, nil
	case MatchNone, MatchExact, MatchVariant, MatchCanonical, MatchAmbiguous, MatchUnsupported:
		return MatchType(key), nil
	}
	return MatchNone, fmt.Errorf("unknown match type %q", value)
}

// Display renders an enum name the way release listings show it, e.g.
// PROVISIONALLY_ACCEPTED becomes "provisionally accepted".
func Display[T ~string](value T) string {
	if value == "" {
		return ""
	}
	return cases.Lower(language.Und).String(strings.ReplaceAll(string(value), "_", " "))
}

func enumKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.NewReplacer(" ", "_", "-", "_").Replace(trimmed)
	return cases.Upper(language.Und).String(trimmed)
}
