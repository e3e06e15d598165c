// Package polls enriches raw poll records and runs the optimistic vote lifecycle.
package polls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/confirm"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("poll option not found")
)

// lookupLimit bounds concurrent cache lookups while enriching one poll.
const lookupLimit = 8

// Remote is the REST surface for polls.
type Remote interface {
	FetchPolls(ctx context.Context) ([]models.PollRecord, error)
	VotePoll(ctx context.Context, pollID, optionValue string, userID int64) error
}

// UserLookup resolves users through the entity cache.
type UserLookup interface {
	Get(ctx context.Context, id int64) (models.User, bool)
	Peek(id int64) (models.User, bool)
	Upsert(id int64, user models.User)
}

// TeamLookup resolves teams through the entity cache.
type TeamLookup interface {
	Get(ctx context.Context, id int64) (models.Team, bool)
}

// Confirmer runs a confirmation call in the background.
type Confirmer interface {
	Submit(name string, fn confirm.Func, fields ...zap.Field)
}

// Engine holds enriched polls in display order.
type Engine struct {
	mu    sync.RWMutex
	polls []models.Poll
	index map[string]int

	remote    Remote
	users     UserLookup
	teams     TeamLookup
	confirmer Confirmer
	logger    *zap.Logger
	now       func() time.Time
}

// Deps groups the collaborators of an Engine.
type Deps struct {
	Remote    Remote
	Users     UserLookup
	Teams     TeamLookup
	Confirmer Confirmer
}

// New creates an empty engine.
func New(deps Deps, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		index:     make(map[string]int),
		remote:    deps.Remote,
		users:     deps.Users,
		teams:     deps.Teams,
		confirmer: deps.Confirmer,
		logger:    logger,
		now:       time.Now,
	}
}

// Enrich resolves option labels and voter avatars. Lookup failures fall back to
// placeholder labels; the poll itself is always returned.
func (e *Engine) Enrich(ctx context.Context, raw models.PollRecord) models.Poll {
	poll := models.Poll{
		ID:        raw.ID,
		Question:  raw.Question,
		ExpiresAt: raw.ExpiresAt,
		Options:   make([]models.PollOption, 0, len(raw.Options)),
	}

	// Options are keyed by value: a repeated value folds its voters into the first option.
	seen := make(map[int64]struct{})
	byValue := make(map[string]int, len(raw.Options))
	for _, o := range raw.Options {
		i, dup := byValue[o.Value]
		if !dup {
			i = len(poll.Options)
			byValue[o.Value] = i
			poll.Options = append(poll.Options, models.PollOption{
				Type: o.Type, Value: o.Value, Label: o.Value, UserVotes: make([]int64, 0, len(o.UserVotes)),
			})
		}
		for _, id := range o.UserVotes {
			if _, voted := seen[id]; voted {
				continue
			}
			seen[id] = struct{}{}
			poll.Options[i].UserVotes = append(poll.Options[i].UserVotes, id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i := range poll.Options {
		opt := &poll.Options[i]
		if opt.Type != models.OptionUser && opt.Type != models.OptionTeam {
			continue
		}
		g.Go(func() error {
			opt.Label, opt.Image = e.resolveOption(gctx, opt.Type, opt.Value)
			return nil
		})
	}
	for id := range seen {
		id := id
		g.Go(func() error {
			if e.users != nil {
				e.users.Get(gctx, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	recount(&poll, e.avatar)
	return poll
}

func (e *Engine) resolveOption(ctx context.Context, typ models.OptionType, value string) (label, image string) {
	id, err := strconv.ParseInt(value, 10, 64)
	switch typ {
	case models.OptionUser:
		label = "Usuário #" + value
		if err != nil || e.users == nil {
			return label, ""
		}
		if u, ok := e.users.Get(ctx, id); ok {
			label, _ = lo.Coalesce(u.Name, u.Username, label)
			return label, u.Avatar
		}
	case models.OptionTeam:
		label = "Time #" + value
		if err != nil || e.teams == nil {
			return label, ""
		}
		if t, ok := e.teams.Get(ctx, id); ok {
			label, _ = lo.Coalesce(t.Name, label)
			return label, t.Logo
		}
	}
	if err == nil {
		e.logger.Debug("poll option not resolved", zap.String("type", string(typ)), zap.String("value", value))
	}
	return label, ""
}

func (e *Engine) avatar(userID int64) models.Avatar {
	a := models.Avatar{UserID: userID}
	if e.users != nil {
		if u, ok := e.users.Peek(userID); ok {
			a.URL = u.Avatar
		}
	}
	return a
}

// recount derives TotalVotes and AvatarsByOption from the option voter sets.
func recount(p *models.Poll, avatar func(int64) models.Avatar) {
	p.TotalVotes = 0
	p.AvatarsByOption = make(map[string][]models.Avatar, len(p.Options))
	for _, o := range p.Options {
		p.TotalVotes += len(o.UserVotes)
		p.AvatarsByOption[o.Value] = lo.Map(o.UserVotes, func(id int64, _ int) models.Avatar { return avatar(id) })
	}
}

// Vote moves user's single vote on the poll to optionValue and queues the confirmation.
// Unknown polls or options are rejected without touching state. The expiration is not
// checked here; callers gate on IsOpen.
func (e *Engine) Vote(pollID, optionValue string, user models.User) (models.Poll, error) {
	if e.users != nil && user.ID != 0 {
		e.users.Upsert(user.ID, user)
	}

	e.mu.Lock()
	i, ok := e.index[pollID]
	if !ok {
		e.mu.Unlock()
		return models.Poll{}, ErrPollNotFound
	}
	poll := &e.polls[i]
	target := lo.IndexOf(lo.Map(poll.Options, func(o models.PollOption, _ int) string { return o.Value }), optionValue)
	if target < 0 {
		e.mu.Unlock()
		return models.Poll{}, fmt.Errorf("%w: %q", ErrOptionNotFound, optionValue)
	}

	self := models.Avatar{UserID: user.ID, URL: user.Avatar}
	for j := range poll.Options {
		opt := &poll.Options[j]
		if j == target {
			continue
		}
		if lo.Contains(opt.UserVotes, user.ID) {
			opt.UserVotes = lo.Without(opt.UserVotes, user.ID)
			poll.AvatarsByOption[opt.Value] = lo.Reject(poll.AvatarsByOption[opt.Value], func(a models.Avatar, _ int) bool {
				return a.UserID == user.ID
			})
		}
	}
	opt := &poll.Options[target]
	if !lo.Contains(opt.UserVotes, user.ID) {
		opt.UserVotes = append(opt.UserVotes, user.ID)
		poll.AvatarsByOption[opt.Value] = append(poll.AvatarsByOption[opt.Value], self)
	}
	poll.TotalVotes = lo.SumBy(poll.Options, func(o models.PollOption) int { return len(o.UserVotes) })
	out := poll.Clone()
	e.mu.Unlock()

	if e.confirmer != nil && e.remote != nil {
		e.confirmer.Submit("vote on poll", func(ctx context.Context) error {
			return e.remote.VotePoll(ctx, pollID, optionValue, user.ID)
		}, zap.String("poll_id", pollID), zap.String("option", optionValue), zap.Int64("user_id", user.ID))
	}
	return out, nil
}

// IsOpen reports whether the poll still accepts votes. A poll without expiration never closes.
func (e *Engine) IsOpen(p models.Poll) bool {
	return e.isOpen(p)
}

func (e *Engine) isOpen(p models.Poll) bool {
	return p.ExpiresAt.IsZero() || e.now().Before(p.ExpiresAt)
}

// Winner returns the first option holding the most votes. There is no winner while every count is zero.
func Winner(p models.Poll) (models.PollOption, bool) {
	best := -1
	for i, o := range p.Options {
		if len(o.UserVotes) == 0 {
			continue
		}
		if best < 0 || len(o.UserVotes) > len(p.Options[best].UserVotes) {
			best = i
		}
	}
	if best < 0 {
		return models.PollOption{}, false
	}
	return p.Options[best], true
}

// ApplyRemote replaces the poll with a freshly enriched copy of raw, inserting it when unknown.
func (e *Engine) ApplyRemote(ctx context.Context, raw models.PollRecord) models.Poll {
	poll := e.Enrich(ctx, raw)

	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.index[poll.ID]; ok {
		e.polls[i] = poll
	} else {
		e.index[poll.ID] = len(e.polls)
		e.polls = append(e.polls, poll)
	}
	return poll.Clone()
}

// Hydrate fetches every poll and replaces the engine state. On failure the current state is kept.
func (e *Engine) Hydrate(ctx context.Context) error {
	if e.remote == nil {
		return nil
	}
	records, err := e.remote.FetchPolls(ctx)
	if err != nil {
		e.logger.Warn("poll hydration failed", zap.Error(err))
		return fmt.Errorf("fetch polls: %w", err)
	}
	records = lo.UniqBy(records, func(r models.PollRecord) string { return r.ID })

	enriched := make([]models.Poll, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i, r := range records {
		i, r := i, r
		g.Go(func() error {
			enriched[i] = e.Enrich(gctx, r)
			return nil
		})
	}
	_ = g.Wait()

	index := make(map[string]int, len(enriched))
	for i, p := range enriched {
		index[p.ID] = i
	}
	e.mu.Lock()
	e.polls = enriched
	e.index = index
	e.mu.Unlock()
	e.logger.Debug("polls hydrated", zap.Int("polls", len(enriched)))
	return nil
}

// Polls returns copies of every poll in display order.
func (e *Engine) Polls() []models.Poll {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return lo.Map(e.polls, func(p models.Poll, _ int) models.Poll { return p.Clone() })
}

// Poll returns a copy of one poll.
func (e *Engine) Poll(id string) (models.Poll, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.index[id]
	if !ok {
		return models.Poll{}, false
	}
	return e.polls[i].Clone(), true
}

// Reset drops every poll.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.polls = nil
	e.index = make(map[string]int)
}
