package models

// CommentHeader is the fixed column header of a harvested comment dataset.
var CommentHeader = []string{"comments", "likes"}

// CommentRecord is one top-level comment as returned by the comment API.
type CommentRecord struct {
	Text      string `json:"text" bson:"text"`
	LikeCount int64  `json:"likeCount" bson:"likeCount"`
}

// PageRequest asks the comment API for one page of top-level threads.
type PageRequest struct {
	VideoID    string
	PageToken  string
	MaxResults int64
}

// Page is one API response. An empty NextPageToken ends the stream.
type Page struct {
	Items         []CommentRecord
	NextPageToken string
}

// TabularDataset is the ordered result of a harvest.
type TabularDataset struct {
	Records []CommentRecord
}

// Header returns the dataset column names.
func (d TabularDataset) Header() []string {
	return append([]string(nil), CommentHeader...)
}

// Len returns the row count.
func (d TabularDataset) Len() int { return len(d.Records) }
