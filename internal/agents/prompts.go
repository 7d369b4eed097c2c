package agents

import (
	"fmt"
	"strings"
)

// languageLine keeps multilingual inputs multilingual without any language
// detection in the pipeline itself.
const languageLine = "Respond in the same language as the input."

func generatePrompt(topic, workflowContext string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an idea generator. Produce exactly %d distinct, concrete ideas for the topic below.\n\n", n)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\nReturn a JSON array of objects, one per idea, each with: ")
	b.WriteString(`"idea_number" (integer), "title" (short name), "description" (2-3 sentences), "key_features" (array of strings).`)
	b.WriteString("\n" + languageLine)
	return b.String()
}

// evaluatePrompt is shared by first evaluation and re-evaluation. It must
// stay free of any wording that marks its inputs as reworked versions of
// earlier ideas, and must carry the caller's context verbatim.
func evaluatePrompt(ideas []string, topic, workflowContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a rigorous critic. Evaluate each idea below for the topic %q.\n", topic)
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\nIdeas:\n")
	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, idea)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d objects, in the same order, each with: \"score\" (number 0-10) and \"comment\" (one- to two-sentence critique).\n", len(ideas))
	b.WriteString(languageLine)
	return b.String()
}

func advocatePrompt(pairs []IdeaEvaluation, topic, workflowContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an advocate. For each idea below, make the strongest good-faith case for it, addressing the critique head-on.\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\n")
	for i, p := range pairs {
		fmt.Fprintf(&b, "%d. Idea: %s\n   Critique: %s\n", i+1, p.Idea, p.Critique)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d objects, in the same order, each with: \"advocacy\" (a persuasive paragraph).\n", len(pairs))
	b.WriteString(languageLine)
	return b.String()
}

func skepticPrompt(pairs []IdeaAdvocacy, topic, workflowContext string) string {
	var b strings.Builder
	b.WriteString("You are a skeptic. For each idea below, challenge the advocacy: name the weakest assumptions, failure modes, and hidden costs.\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\n")
	for i, p := range pairs {
		fmt.Fprintf(&b, "%d. Idea: %s\n   Advocacy: %s\n", i+1, p.Idea, p.Advocacy)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d objects, in the same order, each with: \"skepticism\" (a pointed paragraph).\n", len(pairs))
	b.WriteString(languageLine)
	return b.String()
}

func improvePrompt(items []ImprovementInput, workflowContext string) string {
	var b strings.Builder
	b.WriteString("You are an idea refiner. Rework each idea below into a stronger version that answers the critique and the skepticism while keeping what the advocacy praised.\n")
	if workflowContext != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", workflowContext)
	}
	b.WriteString("\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. Idea: %s\n   Critique: %s\n   Advocacy: %s\n   Skepticism: %s\n",
			i+1, it.Idea, it.Critique, it.Advocacy, it.Skepticism)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d objects, in the same order, each with: \"improved_idea\" (the full reworked idea text) and \"key_improvements\" (array of strings).\n", len(items))
	b.WriteString(languageLine)
	return b.String()
}
