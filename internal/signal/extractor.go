// Package signal derives clinical signal tags from user text using fixed
// keyword tables. Matching is a recall-biased substring heuristic: false
// positives are acceptable, scoring and negation handling are out of scope.
// The risk guarantees live in the risk package, not here.
package signal

import "strings"

// Extraction holds the category tags found in one user turn.
type Extraction struct {
	Symptoms []string
	Triggers []string
	Coping   []string
}

var symptomKeywords = map[string][]string{
	"anxiety":    {"anxious", "anxiety", "worry", "worried", "panic", "nervous", "tense", "restless"},
	"depression": {"depressed", "depression", "hopeless", "worthless", "empty", "numb", "sad all the time"},
	"stress":     {"stressed", "stress", "overwhelmed", "burned out", "burnout", "pressure"},
	"insomnia":   {"can't sleep", "cannot sleep", "insomnia", "sleepless", "awake all night", "nightmares"},
	"appetite":   {"no appetite", "not eating", "overeating", "can't eat", "lost weight", "binge"},
	"social":     {"lonely", "alone", "isolated", "no friends", "withdrawn", "avoid people"},
	"work":       {"work", "job", "deadline", "boss", "overtime", "fired", "laid off"},
}

var triggerKeywords = map[string][]string{
	"work_pressure": {"deadline", "performance review", "overtime", "workload", "boss"},
	"relationship":  {"argument", "breakup", "broke up", "divorce", "fight with"},
	"financial":     {"money", "debt", "bills", "rent", "can't afford"},
	"health":        {"diagnosis", "illness", "chronic pain", "hospital"},
	"loss":          {"passed away", "died", "funeral", "grief", "grieving"},
}

var copingKeywords = map[string][]string{
	"exercise":       {"went for a walk", "walking", "running", "gym", "yoga", "exercise"},
	"mindfulness":    {"meditate", "meditation", "breathing exercise", "deep breath", "grounding"},
	"social_support": {"talked to a friend", "called my", "support group", "reached out"},
	"journaling":     {"journal", "wrote down", "writing about"},
	"creative":       {"music", "drawing", "painting", "playing guitar"},
}

// Extract scans text for known categories. A category is included when any
// of its keywords occurs as a case-insensitive substring.
func Extract(text string) Extraction {
	lowered := strings.ToLower(text)
	return Extraction{
		Symptoms: matchCategories(lowered, symptomKeywords),
		Triggers: matchCategories(lowered, triggerKeywords),
		Coping:   matchCategories(lowered, copingKeywords),
	}
}

func matchCategories(lowered string, table map[string][]string) []string {
	var tags []string
	for category, keywords := range table {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				tags = append(tags, category)
				break
			}
		}
	}
	return tags
}
