package domain

import "strings"

// ReferenceImage is the uploaded character image used to condition every
// generation in a batch. Data holds standard base64 without any data URL prefix.
type ReferenceImage struct {
	Data      string `json:"-"`
	MediaType string `json:"media_type"`
}

// IsZero reports whether no image payload is present.
func (r ReferenceImage) IsZero() bool {
	return strings.TrimSpace(r.Data) == ""
}

// BatchConfiguration is the input to one batch: labels in display order and
// the reference image. Duplicate labels produce independent jobs.
type BatchConfiguration struct {
	Labels    []string        `json:"labels"`
	Reference *ReferenceImage `json:"reference,omitempty"`
}

// HasReference reports whether a usable reference image is set.
func (c BatchConfiguration) HasReference() bool {
	return c.Reference != nil && !c.Reference.IsZero()
}
