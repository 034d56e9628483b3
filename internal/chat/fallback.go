package chat

// EmptyReply is shown when the chat endpoint answers successfully with no text.
const EmptyReply = "I'm having trouble right now. Let me create a ticket for you!"

var fallbackReplies = []string{
	"I understand you're having an issue. Let me help you troubleshoot this step by step. Can you tell me more about when this problem started?",
	"Based on what you've described, here are some steps that might help:\n\n1. Restart the application\n2. Clear your cache and cookies\n3. Check your internet connection\n\nDid any of these steps resolve your issue?",
	"Thanks for reaching out! This sounds like it could be a configuration problem. Have you tried updating your settings recently?",
	"I'm here to help! If this issue persists, I'll create a ticket for our technical team to investigate further. Would you like me to do that?",
	"Let me walk you through a solution:\n\nFirst, try refreshing the page. If that doesn't work, try logging out and back in. If you're still experiencing issues, I can escalate this to our support team.",
}

// FallbackCount is the number of canned replies.
func FallbackCount() int { return len(fallbackReplies) }

// FallbackReply maps any index onto a canned reply.
func FallbackReply(index int) string {
	n := len(fallbackReplies)
	return fallbackReplies[((index%n)+n)%n]
}
