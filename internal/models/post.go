package models

import (
	"time"

	"github.com/samber/lo"
)

// ReactionKind is one of the five fixed post reactions.
type ReactionKind string

const (
	ReactionLiked ReactionKind = "liked"
	ReactionBeast ReactionKind = "beast"
	ReactionFunny ReactionKind = "funny"
	ReactionAngry ReactionKind = "angry"
	ReactionSad   ReactionKind = "sad"
)

// ReactionKinds lists every reaction kind in display order.
var ReactionKinds = []ReactionKind{ReactionLiked, ReactionBeast, ReactionFunny, ReactionAngry, ReactionSad}

// Valid reports whether k is one of the fixed kinds.
func (k ReactionKind) Valid() bool {
	return lo.Contains(ReactionKinds, k)
}

// Reactions maps a reaction kind to the ids of users who picked it.
type Reactions map[ReactionKind][]int64

// KindOf returns the reaction userID currently holds on the post.
func (r Reactions) KindOf(userID int64) (ReactionKind, bool) {
	for _, k := range ReactionKinds {
		if lo.Contains(r[k], userID) {
			return k, true
		}
	}
	return "", false
}

// Comment is an append-only post comment.
type Comment struct {
	UserID    int64     `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Post is a feed entry.
type Post struct {
	ID        string    `json:"id" validate:"required"`
	AuthorID  int64     `json:"userId"`
	Content   string    `json:"content"`
	Media     []string  `json:"media"`
	Reactions Reactions `json:"reactions"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy with every reaction kind present.
// Unknown reaction kinds are dropped and each voter is kept once, in the first kind it appears under.
func (p Post) Clone() Post {
	out := p
	out.Media = append([]string(nil), p.Media...)
	out.Comments = append([]Comment(nil), p.Comments...)
	out.Reactions = make(Reactions, len(ReactionKinds))
	seen := make(map[int64]struct{})
	for _, k := range ReactionKinds {
		voters := make([]int64, 0, len(p.Reactions[k]))
		for _, id := range p.Reactions[k] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			voters = append(voters, id)
		}
		out.Reactions[k] = voters
	}
	return out
}
