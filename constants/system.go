package constants

import (
	"strings"
	"unicode"
)

// System is one of the platforms a requester can ask access to.
type System string

const (
	BorjPilotage System = "Borj-Pilotage"
	QlikView     System = "QlikView"
	QlikSense    System = "QlikSense"
	DataLake     System = "DataLake"
	IBMDataStage System = "IBM DataStage"
)

var allSystems = []System{
	BorjPilotage,
	QlikView,
	QlikSense,
	DataLake,
	IBMDataStage,
}

// Systems returns the known systems in form order.
func Systems() []System {
	out := make([]System, len(allSystems))
	copy(out, allSystems)
	return out
}

func SystemsAsStrings() []string {
	result := make([]string, len(allSystems))
	for i, s := range allSystems {
		result[i] = string(s)
	}
	return result
}

// CanonicalSystem maps a loosely written system name to its canonical spelling.
// Case, spaces and hyphens are ignored.
func CanonicalSystem(input string) (System, bool) {
	key := systemKey(input)
	if key == "" {
		return "", false
	}

	synonyms := map[string]System{
		"borj":      BorjPilotage,
		"datastage": IBMDataStage,
	}
	if s, ok := synonyms[key]; ok {
		return s, true
	}

	for _, s := range allSystems {
		if key == systemKey(string(s)) {
			return s, true
		}
	}
	return "", false
}

func systemKey(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
