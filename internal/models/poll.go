package models

import "time"

// OptionType tells how a poll option value is resolved for display.
type OptionType string

const (
	OptionText OptionType = "text"
	OptionUser OptionType = "user"
	OptionTeam OptionType = "team"
)

// PollOptionRecord is a raw poll option as delivered by REST or push.
type PollOptionRecord struct {
	Type      OptionType `json:"type" validate:"required,oneof=text user team"`
	Value     string     `json:"value" validate:"required"`
	UserVotes []int64    `json:"userVotes"`
}

// PollRecord is the raw poll shape as delivered by REST or push.
type PollRecord struct {
	ID        string             `json:"id" validate:"required"`
	Question  string             `json:"question"`
	Options   []PollOptionRecord `json:"options" validate:"required,min=1,dive"`
	ExpiresAt time.Time          `json:"expiration"`
}

// PollOption is an enriched option ready for display.
type PollOption struct {
	Type      OptionType `json:"type"`
	Value     string     `json:"value"`
	Label     string     `json:"label"`
	Image     string     `json:"image,omitempty"`
	UserVotes []int64    `json:"userVotes"`
}

// Avatar is a voter's picture shown next to an option.
type Avatar struct {
	UserID int64  `json:"userId"`
	URL    string `json:"url"`
}

// Poll is an enriched poll. AvatarsByOption is keyed by option value and mirrors each option's voters.
type Poll struct {
	ID              string              `json:"id"`
	Question        string              `json:"question"`
	Options         []PollOption        `json:"options"`
	ExpiresAt       time.Time           `json:"expiration"`
	TotalVotes      int                 `json:"totalVotes"`
	AvatarsByOption map[string][]Avatar `json:"avatarsByOption"`
}

// Clone returns a deep copy of p.
func (p Poll) Clone() Poll {
	out := p
	out.Options = make([]PollOption, len(p.Options))
	for i, o := range p.Options {
		o.UserVotes = append([]int64{}, o.UserVotes...)
		out.Options[i] = o
	}
	out.AvatarsByOption = make(map[string][]Avatar, len(p.AvatarsByOption))
	for k, v := range p.AvatarsByOption {
		out.AvatarsByOption[k] = append([]Avatar{}, v...)
	}
	return out
}
