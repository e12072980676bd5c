package transfer

import (
	"strings"

	"github.com/savedtransfer/saved-transfer/internal/reddit"
	"github.com/savedtransfer/saved-transfer/internal/saved"
)

// classify converts a listing child into a saved item. Kinds other than
// comments and links become post-shaped items; fallback reports that case.
func classify(th reddit.Thing) (it saved.Item, fallback bool) {
	d := th.Data

	switch th.Kind {
	case reddit.KindComment:
		return saved.Item{
			Kind:         saved.KindComment,
			ID:           d.ID,
			Subreddit:    d.Subreddit,
			LinkID:       d.LinkID,
			SubmissionID: strings.TrimPrefix(d.LinkID, reddit.KindLink+"_"),
		}, false
	case reddit.KindLink:
		return postItem(d), false
	default:
		return postItem(d), true
	}
}

func postItem(d reddit.ThingData) saved.Item {
	return saved.Item{
		Kind:      saved.KindPost,
		ID:        d.ID,
		Subreddit: d.Subreddit,
		Title:     d.Title,
		IsSelf:    d.IsSelf,
		URL:       d.URL,
	}
}
