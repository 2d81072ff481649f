package image

import (
	"fmt"
	"strings"
)

const stickerPromptTemplate = `Generate a Telegram sticker based on the attached character reference.

Action/Emotion: %s

Visual Style:
- Vector art illustration
- Flat design with clean lines
- Required: Thick WHITE OUTLINE around the character (sticker die-cut style)
- Required: Solid BLACK background
- No text or writing in the image

Character Consistency:
- Match the character's appearance, colors, and accessories from the reference image.`

// BuildStickerPrompt returns the instruction sent alongside the reference
// image. The label is the only variable part.
func BuildStickerPrompt(label string) string {
	return fmt.Sprintf(stickerPromptTemplate, strings.TrimSpace(label))
}
