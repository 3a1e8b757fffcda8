package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synthscribe/synthscribe/experiment"
)

const systemPrompt = "You are a helpful music recommendation assistant named SynthScribe."

const zeroShotTemplate = `You are SynthScribe, a music recommendation expert.
Suggest 4 music genres/artists for: "%[1]s"
Format each as:
- Genre: [name]
  Artists: [names]
  Note: [reason]`

const fewShotTemplate = `Examples:
Input: "coding late at night"
Output:
- Genre: Lofi Hip Hop
  Artists: Nujabes, J Dilla
  Note: Relaxing beats for focus

Input: "morning workout"
Output:
- Genre: Electronic/EDM
  Artists: The Prodigy, Pendulum
  Note: High energy for motivation

Now suggest music for: "%[1]s"
Follow the same format.`

const personaTemplate = `You are Nova, an empathetic AI music curator.
%[2]s

The user needs music for: "%[1]s"

Provide 4 thoughtful suggestions that balance their preferences with discovery.
Format each as:
- Genre: [name]
  Artists: [names]
  Note: [personalized insight]`

const defaultTemplate = `You are SynthScribe, a music recommendation expert.
A user needs music suggestions for the following situation: "%[1]s"
%[2]s

Please provide 3-4 distinct musical ideas. For each idea, strictly follow this format:
- Genre: [The specific genre or subgenre]
  Artists: [Comma-separated list of 1-2 representative artists, if applicable]
  Album: [Album Title] by [Album Artist] (If no specific album, omit this line.)
  Note: [A brief, 1-sentence explanation of why this music matches the user's situation.]

Only provide the formatted suggestions. Do not include any conversational filler before or after the list.`

// PromptVariants are the candidate prompting strategies evaluated against
// each other. Each becomes a variant of the prompt experiment; the template
// lives in the variant config so results stay self-describing.
func PromptVariants() []experiment.VariantSpec {
	return []experiment.VariantSpec{
		{
			Name:        "zero_shot",
			Description: "Basic zero-shot prompt",
			Config:      map[string]any{"template": zeroShotTemplate},
		},
		{
			Name:        "few_shot",
			Description: "Few-shot learning with examples",
			Config:      map[string]any{"template": fewShotTemplate},
		},
		{
			Name:        "persona_based",
			Description: "AI persona with context",
			Config:      map[string]any{"template": personaTemplate},
		},
	}
}

// renderPrompt fills a variant template with the mood description and, for
// templates that reference it, the user-history context.
func renderPrompt(template, description, context string) string {
	if strings.Contains(template, "%[2]s") {
		return fmt.Sprintf(template, description, context)
	}
	return fmt.Sprintf(template, description)
}

// HistoryContext summarizes a user's recent listening history into a single
// sentence for persona prompts. genreCounts maps genre to how often it
// appeared in recent suggestions; an empty map yields an empty context.
func HistoryContext(genreCounts map[string]int) string {
	if len(genreCounts) == 0 {
		return ""
	}
	type genreCount struct {
		genre string
		count int
	}
	ranked := make([]genreCount, 0, len(genreCounts))
	for g, n := range genreCounts {
		ranked = append(ranked, genreCount{g, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].genre < ranked[j].genre
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	genres := make([]string, len(ranked))
	for i, gc := range ranked {
		genres[i] = gc.genre
	}
	return "The user previously enjoyed: " + strings.Join(genres, ", ")
}
