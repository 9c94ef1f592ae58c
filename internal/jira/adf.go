package jira

// Atlassian Document Format fragments, just enough for a plain-text
// description. The v3 issue endpoints reject string descriptions.

type adfDocument struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []adfNode `json:"content"`
}

type adfNode struct {
	Type    string    `json:"type"`
	Content []adfNode `json:"content,omitempty"`
	Text    string    `json:"text,omitempty"`
}

// descriptionDoc wraps the raw description text in a single paragraph node.
// An empty description becomes a placeholder dash so the document stays valid.
func descriptionDoc(text string) adfDocument {
	if text == "" {
		text = "—"
	}
	return adfDocument{
		Type:    "doc",
		Version: 1,
		Content: []adfNode{
			{
				Type: "paragraph",
				Content: []adfNode{
					{Type: "text", Text: text},
				},
			},
		},
	}
}
