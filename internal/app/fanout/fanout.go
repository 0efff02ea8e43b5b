// Package fanout applies group mutations through the group store and tells
// the affected members. Recipient sets always come from the roster the store
// returned for that mutation; rosters are never cached.
package fanout

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

type Emitter interface {
	Emit(targets []domain.UserID, ev events.Event) dispatch.Result
}

type Fanout struct {
	groups  core.GroupStore
	convs   core.ConversationStore
	emitter Emitter
	log     zerolog.Logger
}

func New(groups core.GroupStore, convs core.ConversationStore, emitter Emitter) *Fanout {
	return &Fanout{
		groups:  groups,
		convs:   convs,
		emitter: emitter,
		log:     log.With().Str("module", "app.fanout").Logger(),
	}
}

// Create makes a group and announces it, with its conversation, to every
// initial member.
func (f *Fanout) Create(ctx context.Context, name string, creator domain.UserID, members []domain.UserID) (domain.GroupRoster, error) {
	const op = "fanout.create"
	if name == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group name is required")
	}
	g, err := f.groups.Create(ctx, name, creator, members)
	if err != nil {
		return domain.GroupRoster{}, domain.Persistence(op, err)
	}
	conv := f.conversationOf(ctx, g)

	to := g.MemberIDs()
	f.emitter.Emit(to, events.NewGroupCreated{Group: g})
	f.emitter.Emit(to, events.NewConversation{Conversation: conv, Group: &g})
	f.log.Info().Str("group", string(g.ID)).Int("members", len(to)).Msg("group created")
	return g, nil
}

func (f *Fanout) AddMember(ctx context.Context, id domain.GroupID, member, by domain.UserID) (domain.GroupRoster, error) {
	const op = "fanout.add_member"
	if id == "" || member == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group and member are required")
	}
	g, err := f.groups.AddMember(ctx, id, member, by)
	if err != nil {
		return domain.GroupRoster{}, domain.Persistence(op, err)
	}
	f.emitter.Emit(g.MemberIDs(), events.MemberAddedToGroup{GroupID: id, NewMember: member, AddedBy: by, Group: g})
	f.emitter.Emit([]domain.UserID{member}, events.AddedToGroup{Group: g})
	return g, nil
}

// RemoveMember also covers leaving: member == by.
func (f *Fanout) RemoveMember(ctx context.Context, id domain.GroupID, member, by domain.UserID) (domain.GroupRoster, error) {
	const op = "fanout.remove_member"
	if id == "" || member == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group and member are required")
	}
	g, err := f.groups.RemoveMember(ctx, id, member, by)
	if err != nil {
		return domain.GroupRoster{}, domain.Persistence(op, err)
	}
	f.emitter.Emit(domain.WithoutUser(g.MemberIDs(), member), events.MemberRemovedFromGroup{
		GroupID:       id,
		RemovedMember: member,
		RemovedBy:     by,
		Group:         g,
	})
	f.emitter.Emit([]domain.UserID{member}, events.RemovedFromGroup{GroupID: id})
	return g, nil
}

// ChangeRole emits one memberRoleChanged for member. When the change handed
// the admin role over, the demoted admin gets a second one of its own.
func (f *Fanout) ChangeRole(ctx context.Context, id domain.GroupID, member domain.UserID, role domain.Role, by domain.UserID) (domain.GroupRoster, error) {
	const op = "fanout.change_role"
	if id == "" || member == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group and member are required")
	}
	if !role.Valid() {
		return domain.GroupRoster{}, domain.Validation(op, "unknown role "+string(role))
	}
	rc, err := f.groups.ChangeRole(ctx, id, member, role, by)
	if err != nil {
		return domain.GroupRoster{}, domain.Persistence(op, err)
	}
	g := rc.Group

	to := g.MemberIDs()
	f.emitter.Emit(to, events.MemberRoleChanged{GroupID: id, MemberID: member, NewRole: role, ChangedBy: by, Group: g})
	for _, demoted := range domain.UniqueUsers(rc.Demoted) {
		if demoted == member {
			continue
		}
		newRole, ok := g.RoleOf(demoted)
		if !ok {
			continue
		}
		f.emitter.Emit(to, events.MemberRoleChanged{GroupID: id, MemberID: demoted, NewRole: newRole, ChangedBy: by, Group: g})
		f.log.Info().Str("group", string(id)).Str("user", string(demoted)).Msg("admin role handed over")
	}
	return g, nil
}

func (f *Fanout) UpdateInfo(ctx context.Context, id domain.GroupID, update domain.GroupUpdate, by domain.UserID) (domain.GroupRoster, error) {
	const op = "fanout.update_info"
	if id == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group is required")
	}
	if update.Empty() {
		return domain.GroupRoster{}, domain.Validation(op, "nothing to update")
	}
	g, err := f.groups.UpdateInfo(ctx, id, update, by)
	if err != nil {
		return domain.GroupRoster{}, domain.Persistence(op, err)
	}
	to := g.MemberIDs()
	f.emitter.Emit(to, events.GroupInfoUpdated{GroupID: id, UpdatedBy: by, Group: g})
	conv := f.conversationOf(ctx, g)
	f.emitter.Emit(to, events.ConversationInfoUpdated{
		ConversationID: conv.ID,
		Name:           g.Name,
		Avatar:         g.Avatar,
		Conversation:   conv,
	})
	return g, nil
}

func (f *Fanout) conversationOf(ctx context.Context, g domain.GroupRoster) domain.Conversation {
	if f.convs != nil && g.ConversationID != "" {
		conv, err := f.convs.Get(ctx, g.ConversationID)
		if err == nil {
			return conv
		}
		f.log.Warn().Err(err).Str("group", string(g.ID)).Msg("group conversation lookup failed")
	}
	return domain.Conversation{
		ID:           g.ConversationID,
		Type:         domain.ConversationGroup,
		Participants: g.MemberIDs(),
		GroupID:      g.ID,
	}
}
