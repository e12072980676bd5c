// Package saved defines the saved-item model and the save file that carries
// it between an export and a later import. Two encodings are supported: a JSON
// array of tagged records and a plain list with one fullname per line.
package saved

import (
	"strings"
)

// Kind tags which variant an Item holds.
type Kind string

const (
	KindComment Kind = "comment"
	KindPost    Kind = "post"
)

// Fullname prefixes. A fullname is the kind prefix plus the base36 id.
const (
	commentPrefix = "t1_"
	postPrefix    = "t3_"
)

// Item is one saved thing. Comment items use LinkID and SubmissionID; post
// items use Title, IsSelf and URL. Subreddit applies to both. An Item parsed
// from a plain file carries only Kind and ID.
type Item struct {
	Kind Kind
	ID   string

	Subreddit string

	// Comment fields.
	LinkID       string
	SubmissionID string

	// Post fields.
	Title  string
	IsSelf bool
	URL    string
}

// Fullname returns the id with its kind prefix, which is what the save
// endpoint expects. Anything that is not a comment is saved as a post.
func (it Item) Fullname() string {
	if it.Kind == KindComment {
		return commentPrefix + it.ID
	}

	return postPrefix + it.ID
}

// ParseFullname turns "t1_abc" or "t3_abc" into a bare Item. Ids without a
// known prefix are treated as posts.
func ParseFullname(s string) Item {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, commentPrefix):
		return Item{Kind: KindComment, ID: strings.TrimPrefix(s, commentPrefix)}
	case strings.HasPrefix(s, postPrefix):
		return Item{Kind: KindPost, ID: strings.TrimPrefix(s, postPrefix)}
	default:
		return Item{Kind: KindPost, ID: s}
	}
}

// Reversed returns a copy of items in reverse order.
func Reversed(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}

	return out
}
