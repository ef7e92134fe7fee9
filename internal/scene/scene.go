// Package scene defines the storyboard data model and the schema check
// applied to raw planner replies.
package scene

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Scene is one timed visual unit derived from the script.
type Scene struct {
	Number            int    `json:"scene_number"`
	Timestamp         string `json:"timestamp"`
	ScriptLine        string `json:"script_line,omitempty"`
	VisualDescription string `json:"visual_description,omitempty"`
	ImagePrompt       string `json:"image_prompt"`
}

// Caption is the script line shown for the scene, falling back to the
// director's note when the model did not quote the script.
func (s Scene) Caption() string {
	if s.ScriptLine != "" {
		return s.ScriptLine
	}
	return s.VisualDescription
}

// Set is the ordered result of one planning call.
type Set struct {
	Scenes []Scene `json:"scenes"`
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Scenes)
}

// Find returns the scene with the given number.
func (s *Set) Find(number int) (Scene, bool) {
	if s == nil {
		return Scene{}, false
	}
	for _, sc := range s.Scenes {
		if sc.Number == number {
			return sc, true
		}
	}
	return Scene{}, false
}

// Ordered returns a copy of the scenes sorted by scene number. Ties keep the
// order the model returned them in.
func (s *Set) Ordered() []Scene {
	if s == nil {
		return nil
	}
	out := make([]Scene, len(s.Scenes))
	copy(out, s.Scenes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ParseError reports a reply that was not a usable scene set.
type ParseError struct {
	Index  int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse scenes: " + e.Reason
	if e.Index >= 0 {
		msg = fmt.Sprintf("parse scenes: scene %d: %s", e.Index, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

type envelope struct {
	Scenes *[]Scene `json:"scenes"`
}

// Parse decodes a raw planner reply into a validated Set. A scene with a
// non-positive or duplicate number, or without an image prompt, fails the
// whole set.
func Parse(raw string) (*Set, error) {
	content := stripFence(raw)

	var env envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, &ParseError{Index: -1, Reason: "invalid json", Err: err}
	}
	if env.Scenes == nil {
		return nil, &ParseError{Index: -1, Reason: `missing "scenes" list`}
	}

	scenes := *env.Scenes
	seen := make(map[int]bool, len(scenes))
	for i, sc := range scenes {
		switch {
		case sc.Number <= 0:
			return nil, &ParseError{Index: i, Reason: fmt.Sprintf("invalid scene_number %d", sc.Number)}
		case seen[sc.Number]:
			return nil, &ParseError{Index: i, Reason: fmt.Sprintf("duplicate scene_number %d", sc.Number)}
		case strings.TrimSpace(sc.ImagePrompt) == "":
			return nil, &ParseError{Index: i, Reason: "missing image_prompt"}
		}
		seen[sc.Number] = true
	}

	return &Set{Scenes: scenes}, nil
}

// stripFence unwraps a reply the model put inside a Markdown code block.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		// one-line fence: drop the language tag up to the JSON body
		if idx := strings.IndexAny(s, "{["); idx >= 0 {
			s = s[idx:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
