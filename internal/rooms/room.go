package rooms

import (
	"time"

	"github.com/acorrad/go-huddle/internal/types"
)

// Room is the authoritative, coordinator-owned record for one active room.
// All access goes through the Coordinator; callers only ever see snapshots.
type Room struct {
	id           string
	code         string
	maxUsers     int
	isLocked     bool
	participants map[string]*types.Participant
	moderators   map[string]struct{}
	createdAt    time.Time
	createdBy    string
}

func (r *Room) snapshot() types.RoomInfo {
	info := types.RoomInfo{
		Id:           r.id,
		Code:         r.code,
		MaxUsers:     r.maxUsers,
		IsLocked:     r.isLocked,
		Participants: r.participantList(),
		Moderators:   make([]string, 0, len(r.moderators)),
		CreatedAt:    r.createdAt,
	}
	for id := range r.moderators {
		info.Moderators = append(info.Moderators, id)
	}
	return info
}

func (r *Room) participantList() []types.Participant {
	list := make([]types.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		cp := *p
		_, cp.IsModerator = r.moderators[p.Id]
		list = append(list, cp)
	}
	return list
}

func (r *Room) isFull() bool {
	return len(r.participants) >= r.maxUsers
}
