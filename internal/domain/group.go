package domain

type (
	GroupID        string
	ConversationID string
)

// GroupRoster is a read-only projection of a group as returned by the group
// store. Members keep the store's order.
type GroupRoster struct {
	ID             GroupID        `json:"id"`
	ConversationID ConversationID `json:"conversationId,omitempty"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Avatar         string         `json:"avatar,omitempty"`
	Members        []GroupMember  `json:"members"`
}

func (g *GroupRoster) MemberIDs() []UserID {
	out := make([]UserID, 0, len(g.Members))
	for _, m := range g.Members {
		out = append(out, m.UserID)
	}
	return out
}

func (g *GroupRoster) Has(user UserID) bool {
	_, ok := g.RoleOf(user)
	return ok
}

func (g *GroupRoster) RoleOf(user UserID) (Role, bool) {
	for _, m := range g.Members {
		if m.UserID == user {
			return m.Role, true
		}
	}
	return "", false
}

// Admins lists members holding RoleAdmin.
func (g *GroupRoster) Admins() []UserID {
	var out []UserID
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			out = append(out, m.UserID)
		}
	}
	return out
}

// RoleChange is the outcome of a role change: the post-mutation roster and
// the admins the change demoted as a side effect.
type RoleChange struct {
	Group   GroupRoster
	Demoted []UserID
}

// GroupUpdate carries the mutable group info fields. Nil means unchanged.
type GroupUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

func (u GroupUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Avatar == nil
}
