package domain

// DefaultLabels is the emotion set used when no preset is configured.
var DefaultLabels = []string{
	"Happy",
	"Sad",
	"Angry",
	"Love",
	"Surprised",
	"Laughing",
	"Cool",
	"Confused",
	"Sleepy",
	"Thumbs Up",
	"Ok",
	"Hi",
	"Bye",
	"Party",
	"Working",
	"Eating",
	"Sick",
	"Rich",
	"Idea",
	"Facepalm",
}

// DefaultLabelsCopy returns a copy safe for callers to modify.
func DefaultLabelsCopy() []string {
	out := make([]string, len(DefaultLabels))
	copy(out, DefaultLabels)
	return out
}
