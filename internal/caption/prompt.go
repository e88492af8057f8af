package caption

// instructionPrompt steers the model toward a single short line that can sit
// above the quoted content without competing with it.
const instructionPrompt = `You write one-line introductions for reposted social media content.
Write a single short sentence (under 120 characters) introducing the post below.
Do not repeat the post's wording. No hashtags, no emoji, no hype words, no quotation marks.
Reply with the sentence only.`

func userPrompt(sourceText, displayHandle string) string {
	return "Post by " + displayHandle + ":\n\n" + sourceText
}
