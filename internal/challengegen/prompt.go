package challengegen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write multiple choice questions that check a learner's understanding of a skill.

Rules:
- Write exactly four options. Exactly one option is correct.
- Options must be distinct and plausible. Avoid "all of the above" and "none of the above".
- The question must stand on its own and be answerable without external material.
- Keep the question under 500 characters and each option under 200 characters.
- Match the requested difficulty level closely.
- Give a short explanation of why the correct option is right.

Respond with JSON only.`

var difficultyDescriptions = map[int]string{
	1:  "Basic recall, simple facts",
	2:  "Simple recall with minor context",
	3:  "Understanding basic relationships",
	4:  "Applying knowledge to straightforward situations",
	5:  "Analyzing moderately complex scenarios",
	6:  "Combining multiple concepts",
	7:  "Evaluating edge cases",
	8:  "Complex problem-solving with nuance",
	9:  "Expert-level synthesis",
	10: "Master-level with subtle distinctions",
}

// DescribeDifficulty returns a short description of what a level demands.
func DescribeDifficulty(level int) string {
	if d, ok := difficultyDescriptions[level]; ok {
		return d
	}
	return "Unspecified difficulty"
}

type promptKind int

const (
	kindChallenge promptKind = iota
	kindCalibration
)

func buildUserMessage(input Input, kind promptKind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Skill: %s\n", input.SkillName)
	if input.SkillDescription != "" {
		fmt.Fprintf(&b, "Description: %s\n", input.SkillDescription)
	}
	fmt.Fprintf(&b, "Difficulty: %d/10 (%s)\n", input.Difficulty, DescribeDifficulty(input.Difficulty))

	b.WriteString("\n")
	switch kind {
	case kindCalibration:
		b.WriteString("This question is one of ten placement questions, one per difficulty level. ")
		b.WriteString("It must separate learners who have reached this level from those who have not, ")
		b.WriteString("so do not make it easier or harder than the level described.\n")
	default:
		b.WriteString("This is a practice challenge for a learner currently working at this level.\n")
	}

	return b.String()
}
