package openai

import (
	"fmt"
)

const contentSystemPrompt = `You analyze Christian sermon transcripts and write material for church communications and small groups.

Guidelines:
- Scripture references must name the correct book, chapter and verse.
- Keep summaries faithful to the speaker's intent and tone.
- Discussion questions should invite reflection, never a bare yes or no.
- Application challenges must be specific and doable within a week.

Reply with one raw JSON object. No markdown, no code fences, no commentary.`

const contentPromptTemplate = `Analyze the sermon transcript below and produce:

- summary: two or three sentences in the third person, suitable as a podcast episode description
- big_idea: one quotable sentence carrying the main point
- primary_scripture: the central passage, with "reference" (for example "Philippians 4:6-7") and "text" (abbreviated if long)
- supporting_scriptures: up to three further passages the sermon mentions, each with "reference" and "text"
- topics: three to five lowercase single-word themes such as "grace" or "prayer"
- discussion_guide.icebreaker: a light opening question for a small group
- discussion_guide.questions: five questions that refer to specific moments in the sermon
- discussion_guide.application: one concrete challenge for the coming week
- discussion_guide.prayer_points: two or three prayer focuses

The object must validate against this JSON schema:

%s

SERMON TITLE: %s

TRANSCRIPT:
%s`

const formatPromptTemplate = `Rewrite this raw caption transcript as readable written English:
1. Capitalize sentences and proper nouns.
2. Add punctuation.
3. Break paragraphs where the topic shifts or the speaker pauses.
4. Drop filler words such as "um" and "uh" where they pile up.

Keep every sentence the speaker said. Do not summarize or shorten.
Return only the formatted transcript.

RAW TRANSCRIPT:
%s`

func buildContentPrompt(schema []byte, title, transcript string) string {
	return fmt.Sprintf(contentPromptTemplate, schema, title, transcript)
}

func buildFormatPrompt(text string) string {
	return fmt.Sprintf(formatPromptTemplate, text)
}
