package saved

import (
	"encoding/json"
	"fmt"
)

// commentRecord and postRecord are the on-disk JSON shapes. Field names are
// kept compatible with files written by earlier versions of the tool.
type commentRecord struct {
	Type         Kind   `json:"type"`
	ID           string `json:"id"`
	LinkID       string `json:"link_id"`
	SubmissionID string `json:"submission_id"`
	Subreddit    string `json:"subreddit"`
}

type postRecord struct {
	Type      Kind   `json:"type"`
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	IsSelf    bool   `json:"is_self"`
	URL       string `json:"url"`
}

// rawRecord decodes either shape. Type selects the variant.
type rawRecord struct {
	Type         Kind   `json:"type"`
	ID           string `json:"id"`
	LinkID       string `json:"link_id"`
	SubmissionID string `json:"submission_id"`
	Subreddit    string `json:"subreddit"`
	Title        string `json:"title"`
	IsSelf       bool   `json:"is_self"`
	URL          string `json:"url"`
}

// marshalRecord encodes one item as its tagged record.
func marshalRecord(it Item, prefix, indent string) ([]byte, error) {
	var v any

	if it.Kind == KindComment {
		v = commentRecord{
			Type:         KindComment,
			ID:           it.ID,
			LinkID:       it.LinkID,
			SubmissionID: it.SubmissionID,
			Subreddit:    it.Subreddit,
		}
	} else {
		v = postRecord{
			Type:      KindPost,
			ID:        it.ID,
			Subreddit: it.Subreddit,
			Title:     it.Title,
			IsSelf:    it.IsSelf,
			URL:       it.URL,
		}
	}

	data, err := json.MarshalIndent(v, prefix, indent)
	if err != nil {
		return nil, fmt.Errorf("saved: encoding %s: %w", it.Fullname(), err)
	}

	return data, nil
}

// toItem converts a decoded record. Unknown types become posts.
func (r rawRecord) toItem() Item {
	if r.Type == KindComment {
		return Item{
			Kind:         KindComment,
			ID:           r.ID,
			LinkID:       r.LinkID,
			SubmissionID: r.SubmissionID,
			Subreddit:    r.Subreddit,
		}
	}

	return Item{
		Kind:      KindPost,
		ID:        r.ID,
		Subreddit: r.Subreddit,
		Title:     r.Title,
		IsSelf:    r.IsSelf,
		URL:       r.URL,
	}
}
