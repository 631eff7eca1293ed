package api

import (
	"context"
	"net/http"
	"strconv"
)

// GroupClient talks to the group endpoints
type GroupClient struct {
	resource[Group]
}

var _ GroupAPI = (*GroupClient)(nil)

// NewGroupClient creates a GroupClient on top of c
func NewGroupClient(c *Client) *GroupClient {
	r := newResource[Group](c, "/groups", "group", "groups")
	r.body = func(g *Group) (any, error) {
		if err := ValidateGroup(g); err != nil {
			return nil, err
		}
		out := *g
		if g.Members != nil {
			out.Members = make([]User, 0, len(g.Members))
			for _, m := range g.Members {
				out.Members = append(out.Members, User{ID: ID(m.GetID())})
			}
		}
		return out, nil
	}
	return &GroupClient{resource: r}
}

// AddMember adds a user to a group
func (g *GroupClient) AddMember(ctx context.Context, groupID, userID int64) (*Group, error) {
	return g.member(ctx, http.MethodPut, "add-member", groupID, userID)
}

// RemoveMember removes a user from a group
func (g *GroupClient) RemoveMember(ctx context.Context, groupID, userID int64) (*Group, error) {
	return g.member(ctx, http.MethodDelete, "remove-member", groupID, userID)
}

func (g *GroupClient) member(ctx context.Context, method, op string, groupID, userID int64) (*Group, error) {
	if err := requireID("group id", groupID); err != nil {
		return nil, err
	}
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}

	var out Group
	err := g.client.do(ctx, call{
		method:   method,
		path:     g.byID(op, groupID) + "/" + strconv.FormatInt(userID, 10),
		auth:     true,
		fallback: "Could not change the group members.",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ScheduleClient talks to the schedule endpoints
type ScheduleClient struct {
	resource[Schedule]
}

var _ ScheduleAPI = (*ScheduleClient)(nil)

// NewScheduleClient creates a ScheduleClient on top of c
func NewScheduleClient(c *Client) *ScheduleClient {
	r := newResource[Schedule](c, "/schedules", "schedule", "schedules")
	r.body = func(s *Schedule) (any, error) {
		if err := ValidateSchedule(s); err != nil {
			return nil, err
		}
		out := *s
		out.Group = &Group{ID: ID(s.Group.GetID())}
		return out, nil
	}
	return &ScheduleClient{resource: r}
}

// ByGroup lists the schedules of one group
func (s *ScheduleClient) ByGroup(ctx context.Context, groupID int64) ([]Schedule, error) {
	if err := requireID("group id", groupID); err != nil {
		return nil, err
	}
	return s.listBy(ctx, call{
		path:     s.path + "/find-by-group/" + strconv.FormatInt(groupID, 10),
		fallback: "Could not list schedules of the group.",
	})
}
