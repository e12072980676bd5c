package reddit

// Thing kinds returned in listings.
const (
	KindComment = "t1"
	KindAccount = "t2"
	KindLink    = "t3"
)

// Account is the authenticated user.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Thing is one listing child: a kind tag plus the object data. Data carries
// the union of the comment and link fields the transfer needs; fields that
// do not apply to a kind are left empty.
type Thing struct {
	Kind string    `json:"kind"`
	Data ThingData `json:"data"`
}

// ThingData mirrors the subset of Reddit's comment and link JSON we keep.
type ThingData struct {
	ID        string `json:"id"`
	Name      string `json:"name"` // fullname, e.g. "t3_abc123" or "t1_xyz789"
	Subreddit string `json:"subreddit"`
	Permalink string `json:"permalink"`

	// Link (t3) fields.
	Title  string `json:"title"`
	IsSelf bool   `json:"is_self"`
	URL    string `json:"url"`

	// Comment (t1) fields.
	LinkID   string `json:"link_id"`
	ParentID string `json:"parent_id"`
}

// Page is one page of a listing. After is the cursor for the next page and
// is empty on the last page.
type Page struct {
	Things []Thing
	After  string
}

// listingResponse mirrors Reddit's Listing envelope.
type listingResponse struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []Thing `json:"children"`
	} `json:"data"`
}
