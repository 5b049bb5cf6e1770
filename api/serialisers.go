package api

import (
	"time"

	"github.com/gatherhq/gather/internal/algorithms"
	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/snowflake"
)

// serialisers build the flat projection records that cross the API
// boundary. Nothing here serialises a database entity directly; views are
// assembled field by field so no entity back references leak onto the wire.

type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	Bio            string `json:"bio,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	FollowersCount int32  `json:"followers_count"`
	FollowingCount int32  `json:"following_count"`
	HostedCount    int32  `json:"hosted_count"`
}

type Attendee struct {
	Profile
	Host     bool   `json:"host"`
	JoinedAt string `json:"joined_at"`
}

type Activity struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	City        string     `json:"city,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Cancelled   bool       `json:"cancelled"`
	HostID      string     `json:"host_id"`
	HostName    string     `json:"host_name"`
	Attendees   []Attendee `json:"attendees"`
	IsHost      bool       `json:"is_host"`
	IsGoing     bool       `json:"is_going"`
}

type Comment struct {
	ID           string `json:"id"`
	Body         string `json:"body"`
	CreatedAt    string `json:"created_at"`
	AuthorID     string `json:"author_id"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar,omitempty"`
}

// A Serialiser builds views for the actor making the request.
type Serialiser struct {
	actorID snowflake.ID
}

func (s Serialiser) Profile(a *models.Actor) Profile {
	return Profile{
		ID:             a.ID.String(),
		Name:           a.Name,
		DisplayName:    a.DisplayName,
		Bio:            a.Bio,
		Avatar:         a.Avatar,
		FollowersCount: a.FollowersCount,
		FollowingCount: a.FollowingCount,
		HostedCount:    a.HostedCount,
	}
}

func (s Serialiser) Activity(a models.Activity) Activity {
	view := Activity{
		ID:          a.ID.String(),
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Date:        a.Date.UTC().Format(time.RFC3339),
		City:        a.City,
		Venue:       a.Venue,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
		Cancelled:   a.Cancelled,
		Attendees:   algorithms.Map(a.Memberships, s.attendee),
	}
	for _, m := range a.Memberships {
		if m.Host {
			view.HostID = m.ActorID.String()
			if m.Actor != nil {
				view.HostName = m.Actor.Name
			}
		}
		if m.ActorID == s.actorID {
			view.IsGoing = true
			view.IsHost = m.Host
		}
	}
	return view
}

func (s Serialiser) attendee(m models.Membership) Attendee {
	attendee := Attendee{
		Host:     m.Host,
		JoinedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.Actor != nil {
		attendee.Profile = s.Profile(m.Actor)
	} else {
		attendee.Profile = Profile{ID: m.ActorID.String()}
	}
	return attendee
}

func (s Serialiser) Comment(c models.Comment) Comment {
	view := Comment{
		ID:        c.ID.String(),
		Body:      c.Body,
		CreatedAt: c.ID.ToTime().UTC().Format(time.RFC3339),
		AuthorID:  c.ActorID.String(),
	}
	if c.Actor != nil {
		view.AuthorName = c.Actor.Name
		view.AuthorAvatar = c.Actor.Avatar
	}
	return view
}
