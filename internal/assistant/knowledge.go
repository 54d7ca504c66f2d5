package assistant

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

//go:embed knowledge_base.txt
var defaultKnowledgeBase string

const (
	maxChunkChars = 300
	topChunks     = 3
)

// chunkText packs blank-line separated paragraphs into chunks of at most
// maxChunkChars. A paragraph longer than the limit becomes its own chunk.
func chunkText(text string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "at": {}, "be": {}, "can": {}, "do": {}, "for": {},
	"how": {}, "i": {}, "if": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "what": {}, "when": {}, "with": {}, "you": {}, "your": {},
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, skip := stopwords[word]; skip || len(word) < 2 {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}

// KnowledgeBase ranks chunks by how many distinct query terms they contain.
type KnowledgeBase struct {
	chunks []string
	index  []map[string]struct{}
}

func NewKnowledgeBase(text string) *KnowledgeBase {
	if strings.TrimSpace(text) == "" {
		text = defaultKnowledgeBase
	}
	kb := &KnowledgeBase{chunks: chunkText(text, maxChunkChars)}
	for _, c := range kb.chunks {
		kb.index = append(kb.index, terms(c))
	}
	return kb
}

// Retrieve returns up to topChunks chunks sharing at least one term with the
// query, best first. Ties keep document order.
func (kb *KnowledgeBase) Retrieve(query string) []string {
	q := terms(query)
	if len(q) == 0 {
		return nil
	}
	type hit struct {
		pos, score int
	}
	var hits []hit
	for i, idx := range kb.index {
		score := 0
		for t := range q {
			if _, ok := idx[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{i, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topChunks {
		hits = hits[:topChunks]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, kb.chunks[h.pos])
	}
	return out
}

type symptomInfo struct {
	keyword     string
	conditions  []string
	recommended string
}

// Longer phrases first so "chest pain" is reported before a bare "pain" match.
var symptomTable = []symptomInfo{
	{"shortness of breath", []string{"Asthma", "Anxiety", "Heart failure", "COVID-19"}, "SEEK IMMEDIATE MEDICAL ATTENTION if severe or sudden onset."},
	{"abdominal pain", []string{"Gastritis", "Appendicitis", "Food poisoning", "IBS"}, "Seek medical attention if severe, persistent or accompanied by fever. Mild cases may be monitored."},
	{"chest pain", []string{"Angina", "Heart attack", "Muscle strain", "GERD"}, "SEEK IMMEDIATE MEDICAL ATTENTION if severe, especially with shortness of breath, nausea or pain spreading to the arm or jaw."},
	{"headache", []string{"Tension headache", "Migraine", "Sinusitis"}, "Rest in a quiet, dark room and stay hydrated. See a doctor if it is severe or persistent."},
	{"fever", []string{"Common cold", "Flu", "Infection"}, "Monitor your temperature. See a doctor if it goes above 103°F (39.4°C) or lasts more than 3 days."},
	{"cough", []string{"Common cold", "Allergies", "Bronchitis"}, "Stay hydrated. See a doctor if it lasts more than a week or brings up coloured phlegm."},
	{"nausea", []string{"Food poisoning", "Stomach virus", "Migraine", "Medication side effect"}, "Stay hydrated. Seek medical attention if it persists or comes with severe vomiting."},
	{"dizziness", []string{"Low blood pressure", "Dehydration", "Inner ear issues", "Anemia"}, "Sit or lie down straight away. See a doctor if it keeps coming back."},
	{"fatigue", []string{"Anemia", "Depression", "Hypothyroidism", "Sleep disorders"}, "See a doctor if it lasts more than two weeks despite adequate rest."},
	{"rash", []string{"Allergic reaction", "Eczema", "Contact dermatitis"}, "Avoid scratching. Seek immediate attention if it spreads fast or you have trouble breathing."},
}

const medicalDisclaimer = "IMPORTANT: This is not a substitute for professional medical advice. " +
	"For emergencies, call emergency services immediately. " +
	"Symptom information is provided for general guidance only."

var symptomKeywords = []string{"symptom", "pain", "feeling", "hurt", "ache", "sick", "fever", "cough"}

var scheduleKeywords = []string{"schedule", "hours", "timing", "when", "open", "close", "available"}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// matchedSymptoms lists the symptom keywords found in query and whether any
// of them calls for immediate care.
func matchedSymptoms(query string) ([]string, bool) {
	lower := strings.ToLower(query)
	var found []string
	urgent := false
	for _, s := range symptomTable {
		if strings.Contains(lower, s.keyword) {
			found = append(found, s.keyword)
			urgent = urgent || strings.HasPrefix(s.recommended, "SEEK IMMEDIATE")
		}
	}
	return found, urgent
}

func triage(query string) string {
	lower := strings.ToLower(query)
	var b strings.Builder
	for _, s := range symptomTable {
		if !strings.Contains(lower, s.keyword) {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("Based on the symptoms you've described, here's some information:\n\n")
		}
		fmt.Fprintf(&b, "%s\nPossible conditions: %s\nRecommended action: %s\n\n",
			strings.ToUpper(s.keyword[:1])+s.keyword[1:], strings.Join(s.conditions, ", "), s.recommended)
	}
	if b.Len() == 0 {
		return "I couldn't identify specific symptoms from your description. Could you tell me more about what you're experiencing?"
	}
	b.WriteString(medicalDisclaimer)
	return b.String()
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type department struct {
	name    string
	hours   map[string]string
	doctors []string
}

var generalHours = map[string]string{
	"monday": "8:00 AM - 8:00 PM", "tuesday": "8:00 AM - 8:00 PM", "wednesday": "8:00 AM - 8:00 PM",
	"thursday": "8:00 AM - 8:00 PM", "friday": "8:00 AM - 8:00 PM", "saturday": "9:00 AM - 6:00 PM",
	"sunday": "9:00 AM - 2:00 PM (Emergency services only)",
}

func weekHours(weekday, saturday, sunday string) map[string]string {
	return map[string]string{
		"monday": weekday, "tuesday": weekday, "wednesday": weekday, "thursday": weekday,
		"friday": weekday, "saturday": saturday, "sunday": sunday,
	}
}

var departments = []department{
	{"Cardiology", weekHours("9:00 AM - 5:00 PM", "10:00 AM - 2:00 PM", "Closed"), []string{"Dr. Sharma", "Dr. Patel", "Dr. Gupta"}},
	{"Orthopedics", weekHours("10:00 AM - 6:00 PM", "10:00 AM - 2:00 PM", "Closed"), []string{"Dr. Singh", "Dr. Verma", "Dr. Kumar"}},
	{"Pediatrics", weekHours("9:00 AM - 6:00 PM", "9:00 AM - 4:00 PM", "Closed"), []string{"Dr. Joshi", "Dr. Malhotra", "Dr. Bhat"}},
	{"Dermatology", weekHours("10:00 AM - 5:00 PM", "10:00 AM - 2:00 PM", "Closed"), []string{"Dr. Reddy", "Dr. Agarwal"}},
	{"Emergency", weekHours("24 hours", "24 hours", "24 hours"), []string{"On-call emergency physicians"}},
}

func title(day string) string { return strings.ToUpper(day[:1]) + day[1:] }

// scheduleInfo answers hours questions for a day, a department, both or neither.
func scheduleInfo(query string) string {
	lower := strings.ToLower(query)
	var day string
	for _, d := range weekdays {
		if strings.Contains(lower, d) {
			day = d
			break
		}
	}
	var dept *department
	for i := range departments {
		if strings.Contains(lower, strings.ToLower(departments[i].name)) {
			dept = &departments[i]
			break
		}
	}

	var b strings.Builder
	switch {
	case dept != nil && day != "":
		fmt.Fprintf(&b, "%s hours on %s: %s", dept.name, title(day), dept.hours[day])
	case day != "":
		fmt.Fprintf(&b, "Hospital hours on %s: %s", title(day), generalHours[day])
	case dept != nil:
		fmt.Fprintf(&b, "%s schedule:\n", dept.name)
		for _, d := range weekdays {
			fmt.Fprintf(&b, "- %s: %s\n", title(d), dept.hours[d])
		}
		fmt.Fprintf(&b, "Doctors: %s", strings.Join(dept.doctors, ", "))
	default:
		b.WriteString("Hospital general hours:\n")
		for _, d := range weekdays {
			fmt.Fprintf(&b, "- %s: %s\n", title(d), generalHours[d])
		}
	}
	return strings.TrimSpace(b.String())
}
