package models

// VideoRecord is one entry in the videos collection. The Likes and
// Favorites counters always equal the length of their membership lists;
// the catalog keeps that invariant on every mutation.
type VideoRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	UploadDate  string    `json:"upload_date"`
	Views       int       `json:"views"`
	Duration    string    `json:"duration"`
	Thumbnail   string    `json:"thumbnail"`
	Author      string    `json:"author"`
	Likes       int       `json:"likes"`
	Favorites   int       `json:"favorites"`
	LikedBy     []string  `json:"liked_by"`
	FavoritedBy []string  `json:"favorited_by"`
	Comments    []Comment `json:"comments"`
}

// Comment is immutable once appended; comment order is append order.
type Comment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// UserAccount is one entry in the users collection. Following is owned by
// this account; Followers is a counter on this account mutated by other
// users' follow toggles.
type UserAccount struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	RegisterDate string   `json:"register_date"`
	Followers    int      `json:"followers"`
	Following    []string `json:"following"`
	Favorites    []string `json:"favorites"`
}

// DanmuMessage is an ephemeral floating caption. It lives only in process
// memory, keyed by video id, and is never persisted.
type DanmuMessage struct {
	Text   string `json:"text"`
	Time   int64  `json:"time"` // unix milliseconds at post
	Author string `json:"author"`
}

// DanmuEvent is a DanmuMessage tagged with its video, as broadcast on the
// TCP moderation feed.
type DanmuEvent struct {
	VideoID string `json:"video_id"`
	DanmuMessage
}

// Notification is the UDP payload announcing a new catalog entry.
type Notification struct {
	Type      string `json:"type"`
	VideoID   string `json:"video_id,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
