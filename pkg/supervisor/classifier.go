package supervisor

import (
	"regexp"
	"strings"
)

// maxFactoidWords bounds how long a question can be and still count as a
// short factoid.
const maxFactoidWords = 6

var greetings = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"yo":             {},
	"howdy":          {},
	"hiya":           {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"thanks":         {},
	"thank you":      {},
}

// followUpMarkers indicate the task leans on earlier conversation turns.
var followUpMarkers = []string{
	"above",
	"previous",
	"previously",
	"earlier",
	"again",
	"you said",
	"last time",
}

var arithmeticPattern = regexp.MustCompile(`^[0-9+\-*/%(). ]+$`)

var factoidPrefixes = []string{
	"what is ",
	"what's ",
	"who is ",
	"who's ",
	"when is ",
	"where is ",
	"define ",
}

// Trivial reports whether a task qualifies for the fast path: a greeting, a
// small arithmetic expression, or a very short factoid question, with no
// follow-up markers. The caller still has to check the conversation for prior
// assistant turns.
func Trivial(task string) bool {
	t := strings.ToLower(strings.TrimSpace(task))
	t = strings.TrimRight(t, "!.? ")
	if t == "" {
		return false
	}

	if _, ok := greetings[t]; ok {
		return true
	}
	for _, marker := range followUpMarkers {
		if strings.Contains(t, marker) {
			return false
		}
	}
	if len(t) <= 40 && strings.ContainsAny(t, "+-*/%") && arithmeticPattern.MatchString(t) {
		return true
	}
	if len(strings.Fields(t)) <= maxFactoidWords {
		for _, prefix := range factoidPrefixes {
			if strings.HasPrefix(t, prefix) {
				return true
			}
		}
	}
	return false
}
