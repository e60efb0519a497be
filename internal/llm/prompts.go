package llm

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
)

var (
	//go:embed prompts/site_system.txt
	siteSystemPrompt string
	//go:embed prompts/site_user.txt
	siteUserPrompt string
)

// SitePrompt builds the two-message request that turns resume text into the
// three delimited site documents. The resume text is inserted verbatim.
func SitePrompt(resumeText string) []Message {
	user := strings.Replace(siteUserPrompt, "{{RESUME_TEXT}}", resumeText, 1)
	return []Message{
		{Role: RoleSystem, Content: siteSystemPrompt},
		{Role: RoleUser, Content: user},
	}
}

// PromptHash returns a stable sha256 of the exact prompt for auditing.
func PromptHash(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
