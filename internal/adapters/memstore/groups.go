package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dkeye/Chathub/internal/domain"
)

// Groups keeps rosters in join order. A group always has at least one
// admin: promoting a member to admin while there is a single admin hands
// the role over and demotes the old admin to moderator.
type Groups struct {
	now   Clock
	convs *Conversations

	mu     sync.Mutex
	groups map[domain.GroupID]*domain.GroupRoster
}

// NewGroups creates the store. convs, when set, gets a group conversation
// for every new group.
func NewGroups(clock Clock, convs *Conversations) *Groups {
	return &Groups{now: clock, convs: convs, groups: make(map[domain.GroupID]*domain.GroupRoster)}
}

func (s *Groups) Create(_ context.Context, name string, creator domain.UserID, members []domain.UserID) (domain.GroupRoster, error) {
	const op = "memstore.groups.create"
	if name == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group name is required")
	}
	if creator == "" {
		return domain.GroupRoster{}, domain.Validation(op, "creator is required")
	}
	ids := domain.UniqueUsers(append([]domain.UserID{creator}, members...))
	if len(ids) < 3 {
		return domain.GroupRoster{}, domain.Validation(op, "a group needs at least three members")
	}
	now := s.now()
	g := &domain.GroupRoster{
		ID:   domain.GroupID(uuid.NewString()),
		Name: name,
	}
	for i, id := range ids {
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleAdmin
		}
		g.Members = append(g.Members, domain.GroupMember{UserID: id, Role: role, JoinedAt: now})
	}
	if s.convs != nil {
		g.ConversationID = s.convs.CreateGroup(g.ID, ids).ID
	} else {
		g.ConversationID = domain.ConversationID(uuid.NewString())
	}

	s.mu.Lock()
	s.groups[g.ID] = g
	out := copyRoster(g)
	s.mu.Unlock()
	return out, nil
}

func (s *Groups) Get(_ context.Context, id domain.GroupID) (domain.GroupRoster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.GroupRoster{}, domain.NotFound("memstore.groups.get", "group "+string(id))
	}
	return copyRoster(g), nil
}

func (s *Groups) AddMember(_ context.Context, id domain.GroupID, member, by domain.UserID) (domain.GroupRoster, error) {
	const op = "memstore.groups.add"
	return s.mutate(op, id, func(g *domain.GroupRoster) error {
		if !g.Has(by) {
			return domain.Permission(op, "only members may add members")
		}
		if member == "" {
			return domain.Validation(op, "member is required")
		}
		if g.Has(member) {
			return domain.Validation(op, "already a member")
		}
		g.Members = append(g.Members, domain.GroupMember{UserID: member, Role: domain.RoleMember, JoinedAt: s.now()})
		return nil
	})
}

// RemoveMember removes member. Members may remove themselves; admins and
// moderators may remove plain members, and only admins may remove moderators.
func (s *Groups) RemoveMember(_ context.Context, id domain.GroupID, member, by domain.UserID) (domain.GroupRoster, error) {
	const op = "memstore.groups.remove"
	return s.mutate(op, id, func(g *domain.GroupRoster) error {
		target, ok := g.RoleOf(member)
		if !ok {
			return domain.NotFound(op, "not a member")
		}
		actor, ok := g.RoleOf(by)
		if !ok {
			return domain.Permission(op, "not a member")
		}
		if member != by {
			switch {
			case actor == domain.RoleAdmin:
			case actor == domain.RoleModerator && target == domain.RoleMember:
			default:
				return domain.Permission(op, "not allowed to remove this member")
			}
		}
		if target == domain.RoleAdmin && len(g.Admins()) == 1 {
			return domain.Validation(op, "the last admin cannot leave; hand over the role first")
		}
		out := g.Members[:0]
		for _, m := range g.Members {
			if m.UserID != member {
				out = append(out, m)
			}
		}
		g.Members = out
		return nil
	})
}

func (s *Groups) ChangeRole(_ context.Context, id domain.GroupID, member domain.UserID, role domain.Role, by domain.UserID) (domain.RoleChange, error) {
	const op = "memstore.groups.role"
	if !role.Valid() {
		return domain.RoleChange{}, domain.Validation(op, "unknown role "+string(role))
	}
	var demoted []domain.UserID
	g, err := s.mutate(op, id, func(g *domain.GroupRoster) error {
		if r, _ := g.RoleOf(by); r != domain.RoleAdmin {
			return domain.Permission(op, "only an admin may change roles")
		}
		current, ok := g.RoleOf(member)
		if !ok {
			return domain.NotFound(op, "not a member")
		}
		if current == role {
			return domain.Validation(op, "member already has this role")
		}
		admins := g.Admins()
		if current == domain.RoleAdmin && len(admins) == 1 {
			return domain.Validation(op, "a group must keep an admin")
		}
		handover := role == domain.RoleAdmin && len(admins) == 1
		for i := range g.Members {
			switch {
			case g.Members[i].UserID == member:
				g.Members[i].Role = role
			case handover && g.Members[i].UserID == admins[0]:
				g.Members[i].Role = domain.RoleModerator
				demoted = append(demoted, admins[0])
			}
		}
		return nil
	})
	if err != nil {
		return domain.RoleChange{}, err
	}
	return domain.RoleChange{Group: g, Demoted: demoted}, nil
}

func (s *Groups) UpdateInfo(_ context.Context, id domain.GroupID, update domain.GroupUpdate, by domain.UserID) (domain.GroupRoster, error) {
	const op = "memstore.groups.update"
	if update.Empty() {
		return domain.GroupRoster{}, domain.Validation(op, "nothing to update")
	}
	if update.Name != nil && *update.Name == "" {
		return domain.GroupRoster{}, domain.Validation(op, "group name cannot be empty")
	}
	return s.mutate(op, id, func(g *domain.GroupRoster) error {
		if r, _ := g.RoleOf(by); r != domain.RoleAdmin && r != domain.RoleModerator {
			return domain.Permission(op, "only admins and moderators may edit the group")
		}
		if update.Name != nil {
			g.Name = *update.Name
		}
		if update.Description != nil {
			g.Description = *update.Description
		}
		if update.Avatar != nil {
			g.Avatar = *update.Avatar
		}
		return nil
	})
}

// mutate applies fn to a working copy and keeps it only when fn succeeds.
func (s *Groups) mutate(op string, id domain.GroupID, fn func(*domain.GroupRoster) error) (domain.GroupRoster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.GroupRoster{}, domain.NotFound(op, "group "+string(id))
	}
	work := copyRoster(g)
	if err := fn(&work); err != nil {
		return domain.GroupRoster{}, err
	}
	*g = work
	return copyRoster(g), nil
}

func copyRoster(g *domain.GroupRoster) domain.GroupRoster {
	out := *g
	out.Members = append([]domain.GroupMember(nil), g.Members...)
	return out
}
