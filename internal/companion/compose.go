package companion

import (
	"strings"

	"github.com/ent0n29/recall/internal/memory"
)

const (
	// DefaultLastMessage stands in for the user's words when no user turn exists.
	DefaultLastMessage = "Thanks for sharing that with me."

	replyOpening  = "Thanks for opening up.\n\nYou said: \""
	replyRecall   = "\"\n\nHere's what I remember about you so far:\n"
	replyFallback = "\nRight now, I don't have enough information to remember anything specific yet, but I'm here to listen."
	replyClosing  = "\n\nGiven all this, I want to respond to you with care and context."
)

var sectionHeadings = []struct {
	category memory.Category
	heading  string
}{
	{memory.CategoryPreferences, "Preferences"},
	{memory.CategoryEmotionalPatterns, "Emotional patterns I notice"},
	{memory.CategoryFacts, "Important facts about you"},
}

// LastMessage returns the last user turn's content or DefaultLastMessage.
func LastMessage(turns []memory.ChatTurn) string {
	if last, ok := memory.LastUserMessage(turns); ok {
		return last
	}
	return DefaultLastMessage
}

// ComposeReply renders the memory into the base reply that tone is applied to.
func ComposeReply(lastUserMessage string, mem memory.UserMemory) string {
	var b strings.Builder
	b.WriteString(replyOpening)
	b.WriteString(lastUserMessage)
	b.WriteString(replyRecall)

	for _, section := range sectionHeadings {
		items := mem.Category(section.category)
		if len(items) == 0 {
			continue
		}
		b.WriteString("\n• ")
		b.WriteString(section.heading)
		b.WriteString(":\n")
		for _, item := range items {
			b.WriteString("  - ")
			b.WriteString(item.Statement)
			b.WriteString("\n")
		}
	}

	if mem.IsEmpty() {
		b.WriteString(replyFallback)
	}
	b.WriteString(replyClosing)
	return b.String()
}
