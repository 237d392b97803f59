package generator

import (
	"fmt"
	"strings"

	"github.com/ibeckermayer/postcycle/internal/types"
)

// tagReserve is the room left for appended trend hashtags on channels that
// carry them
const tagReserve = 80

// platformName is how prompts refer to each channel kind
func platformName(kind types.ChannelKind) string {
	switch kind {
	case types.ChannelTwitter:
		return "Twitter (X)"
	case types.ChannelFacebook:
		return "Facebook"
	default:
		return string(kind)
	}
}

// TextBudget is the length the model is asked to stay within for a channel
func TextBudget(ch types.ChannelProfile) int {
	budget := ch.MaxLength
	if ch.IncludeTags && budget > 2*tagReserve {
		budget -= tagReserve
	}
	return budget
}

// BuildPrompt constructs the LLM prompt for one channel post
func BuildPrompt(req Request, brand Brand) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a creative social media marketing assistant for %s.\n", brand.Business))
	sb.WriteString(fmt.Sprintf("Your goal is to generate ONE concise, engaging, and lead-generating social media post for %s (max %d characters).\n\n",
		platformName(req.Channel.Kind), TextBudget(req.Channel)))

	sb.WriteString("## Rules\n")
	sb.WriteString("- Be interesting and encourage potential customers to inquire about services.\n")
	sb.WriteString("- Use relevant emojis to make it appealing.\n")
	sb.WriteString("- Only output a single message. No multiple options, no preamble, no quotes.\n")
	if req.Channel.IncludeTags {
		sb.WriteString("- Do not include hashtags, they are added later.\n")
	} else {
		sb.WriteString("- Include a few relevant hashtags.\n")
	}
	if req.Channel.RequireCTA {
		sb.WriteString(fmt.Sprintf("- End with this call to action: %s\n", req.Channel.CTA))
	} else if brand.Website != "" {
		sb.WriteString(fmt.Sprintf("- Invite readers to visit %s", brand.Website))
		if brand.WhatsApp != "" {
			sb.WriteString(fmt.Sprintf(" or message us on WhatsApp %s", brand.WhatsApp))
		}
		sb.WriteString(".\n")
	}
	if req.WithMedia {
		sb.WriteString("- The post is published together with a photo of our work on this topic; refer to the photo naturally.\n")
	}

	sb.WriteString(fmt.Sprintf("\nTopic: %q\n", string(req.Topic)))

	return sb.String()
}
