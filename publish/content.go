package publish

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/poiesic/homily/core"
)

var postTemplate = template.Must(template.New("post").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"join": func(ss []string) string { return strings.Join(ss, ", ") },
}).Parse(`{{with .AudioURL}}<figure class="wp-block-audio"><audio controls src="{{.}}"></audio></figure>
{{end}}{{with .Content}}{{if .Summary}}<p>{{.Summary}}</p>
{{end}}{{if .PrimaryScripture.Reference}}<h3>Scripture Focus</h3>
<blockquote><p><strong>{{.PrimaryScripture.Reference}}</strong>{{with .PrimaryScripture.Text}}<br>{{.}}{{end}}</p></blockquote>
{{end}}{{if .BigIdea}}<h3>The Big Idea</h3>
<p><em>{{.BigIdea}}</em></p>
{{end}}{{with .DiscussionGuide}}{{if .Questions}}<h3>Discussion Questions</h3>
<ol>{{range .Questions}}<li>{{.}}</li>{{end}}</ol>
{{end}}{{with .Application}}<h3>This Week's Challenge</h3>
<p>{{.}}</p>
{{end}}{{if .PrayerPoints}}<h3>Prayer Focus</h3>
<ul>{{range .PrayerPoints}}<li>{{.}}</li>{{end}}</ul>
{{end}}{{end}}{{with $.SupportingRefs}}<h3>Going Deeper</h3>
<p>Related passages: {{join .}}</p>
{{end}}{{end}}{{with .EmbedURL}}<figure class="wp-block-embed is-type-video"><iframe src="{{.}}" width="560" height="315" frameborder="0" allowfullscreen></iframe></figure>
{{end}}{{with .GuideURL}}<p><a href="{{.}}">Download the small group discussion guide (PDF)</a></p>
{{end}}{{with .Topics}}<p class="sermon-topics">Topics: {{join .}}</p>
{{end}}`))

type postView struct {
	*core.Item
	EmbedURL       string
	SupportingRefs []string
	Topics         []string
}

// renderContent builds the post body HTML for item.
func renderContent(item *core.Item) (string, error) {
	view := postView{Item: item, EmbedURL: embedURL(item)}
	if item.Content != nil {
		for _, s := range item.Content.SupportingScriptures {
			if s.Reference != "" {
				view.SupportingRefs = append(view.SupportingRefs, s.Reference)
			}
		}
		view.Topics = item.Content.Topics
	}

	var buf bytes.Buffer
	if err := postTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// excerpt is the summary, or the title when no summary exists.
func excerpt(item *core.Item) string {
	if item.Content != nil && item.Content.Summary != "" {
		return item.Content.Summary
	}
	return item.Title
}

// embedURL returns the YouTube player URL for items sourced from YouTube.
func embedURL(item *core.Item) string {
	if item.ID == "" {
		return ""
	}
	if item.SourceURL != "" && !strings.Contains(item.SourceURL, "youtube.com") && !strings.Contains(item.SourceURL, "youtu.be") {
		return ""
	}
	return "https://www.youtube.com/embed/" + item.ID
}
