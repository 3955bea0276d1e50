// Package chms provides typed clients for the remote ChMS REST API. They
// are thin wrappers over the request pipeline: authentication and branch
// scoping happen there, never here.
package chms

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/parishdesk/console/internal/api"
)

// Branch is a sub-organization partition (a physical campus).
type Branch struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Member is a registered church member.
type Member struct {
	ID        int       `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	BranchID  int       `json:"branchId,omitempty"`
	JoinedAt  time.Time `json:"joinedAt,omitempty"`
}

// Event is a scheduled church event.
type Event struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt,omitempty"`
	Venue    string    `json:"venue,omitempty"`
}

// BranchService lists the branches the signed-in user may scope to.
type BranchService struct {
	client *api.Client
}

func NewBranchService(client *api.Client) *BranchService {
	return &BranchService{client: client}
}

// List fetches all branches of the active church.
func (s *BranchService) List(ctx context.Context) ([]Branch, error) {
	resp, err := s.client.Get(ctx, "/branches")
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	var branches []Branch
	if err := api.DecodeResponse(resp, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// MemberService handles the members list/create plumbing.
type MemberService struct {
	client *api.Client
}

func NewMemberService(client *api.Client) *MemberService {
	return &MemberService{client: client}
}

// List fetches members visible under the active branch scope. search may
// be empty.
func (s *MemberService) List(ctx context.Context, search string) ([]Member, error) {
	path := "/members"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	resp, err := s.client.Get(ctx, path)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	var members []Member
	if err := api.DecodeResponse(resp, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Create registers a new member under the active branch scope.
func (s *MemberService) Create(ctx context.Context, m Member) (*Member, error) {
	resp, err := s.client.Post(ctx, "/members", m)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	var created Member
	if err := api.DecodeResponse(resp, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// EventService lists upcoming events.
type EventService struct {
	client *api.Client
}

func NewEventService(client *api.Client) *EventService {
	return &EventService{client: client}
}

// Upcoming fetches events starting within the next n days.
func (s *EventService) Upcoming(ctx context.Context, days int) ([]Event, error) {
	resp, err := s.client.Get(ctx, fmt.Sprintf("/events?withinDays=%d", days))
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	var events []Event
	if err := api.DecodeResponse(resp, &events); err != nil {
		return nil, err
	}
	return events, nil
}
