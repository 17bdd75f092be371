// Package category maps free-text catalog category labels to the fixed
// set of visual groups used by the map legend and markers.
package category

import "strings"

// Group is one of the four visual categories.
type Group string

const (
	GroupReligious Group = "religious"
	GroupMuseum    Group = "museum"
	GroupMilitary  Group = "military"
	// GroupCivil is the default for anything unmatched.
	GroupCivil Group = "civil"
)

// Keyword sets in evaluation order. The vocabulary is Turkish because
// the catalog labels are; the literals are matched as case-insensitive
// substrings.
var groupKeywords = []struct {
	group    Group
	keywords []string
}{
	{GroupReligious, []string{
		"cami", "kilise", "manastır", "sinagog", "dini", "inanç",
		"mezar", "türbe", "medrese",
	}},
	{GroupMuseum, []string{
		"müze", "antik", "arkeo", "sit", "ören", "miras", "doğal",
	}},
	{GroupMilitary, []string{
		"kale", "sur", "hisar", "kule", "tabya",
	}},
}

// Classify maps a raw category label to its visual group. The first
// keyword set containing a match wins; an empty label and anything
// unmatched fall through to civil. Total and deterministic.
func Classify(label string) Group {
	if label == "" {
		return GroupCivil
	}
	lower := strings.ToLower(label)
	for _, set := range groupKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.group
			}
		}
	}
	return GroupCivil
}
