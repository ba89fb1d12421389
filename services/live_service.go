package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/services/livekit"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LiveService schedules live classes and hands out room tokens
type LiveService struct {
	db     *gorm.DB
	tokens *livekit.TokenIssuer
	url    string
	log    *logger.Logger
	now    func() time.Time
}

// NewLiveService creates a new live class service. url is the LiveKit server the client connects to.
func NewLiveService(db *gorm.DB, tokens *livekit.TokenIssuer, url string, log *logger.Logger) *LiveService {
	return &LiveService{db: db, tokens: tokens, url: url, log: log, now: time.Now}
}

// CreateRoomRequest represents a request to schedule a live class
type CreateRoomRequest struct {
	CourseID        uint              `json:"course_id" validate:"required"`
	Title           string            `json:"title" validate:"required,max=200"`
	Description     *string           `json:"description"`
	StartTS         time.Time         `json:"start_ts" validate:"required"`
	EndTS           time.Time         `json:"end_ts" validate:"required,gtfield=StartTS"`
	SFUProvider     model.SFUProvider `json:"sfu_provider" validate:"omitempty,enum"`
	MaxParticipants int               `json:"max_participants" validate:"omitempty,gte=1,lte=1000"`
}

// UpdateRoomRequest represents a partial update of a live room
type UpdateRoomRequest struct {
	Title           *string    `json:"title" validate:"omitempty,max=200"`
	Description     *string    `json:"description"`
	StartTS         *time.Time `json:"start_ts"`
	EndTS           *time.Time `json:"end_ts"`
	IsActive        *bool      `json:"is_active"`
	RecordingURL    *string    `json:"recording_url" validate:"omitempty,url,max=500"`
	MaxParticipants *int       `json:"max_participants" validate:"omitempty,gte=1,lte=1000"`
}

// RoomFilter narrows the room listing
type RoomFilter struct {
	CourseID   uint
	ActiveOnly bool
}

// JoinInfo is what a participant needs to connect to a room
type JoinInfo struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	RoomName string `json:"room_name"`
}

// NewRoomName returns a unique room name scoped to courseID
func NewRoomName(courseID uint) string {
	return fmt.Sprintf("course-%d-%s", courseID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateRoom schedules a live class for a course actor manages
func (s *LiveService) CreateRoom(ctx context.Context, actor *model.User, req CreateRoomRequest) (*model.LiveRoom, error) {
	if err := validateRequest("live_room", req); err != nil {
		return nil, err
	}

	room := &model.LiveRoom{
		CourseID:        req.CourseID,
		Title:           req.Title,
		Description:     req.Description,
		StartTS:         req.StartTS,
		EndTS:           req.EndTS,
		SFUProvider:     req.SFUProvider,
		RoomName:        NewRoomName(req.CourseID),
		IsActive:        true,
		MaxParticipants: req.MaxParticipants,
	}
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := requireCourseManager(tx, actor, req.CourseID); err != nil {
			return err
		}
		return database.Translate("live_room", tx.Create(room).Error)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns rooms ordered by start time
func (s *LiveService) ListRooms(ctx context.Context, filter RoomFilter) ([]model.LiveRoom, error) {
	query := s.db.WithContext(ctx).Model(&model.LiveRoom{})
	if filter.CourseID != 0 {
		query = query.Where("course_id = ?", filter.CourseID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ? AND end_ts > ?", true, s.now())
	}

	var rooms []model.LiveRoom
	if err := query.Order("start_ts ASC").Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list live rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom returns a room by id
func (s *LiveService) GetRoom(ctx context.Context, id uint) (*model.LiveRoom, error) {
	return loadRoom(s.db.WithContext(ctx), id)
}

func loadRoom(tx *gorm.DB, id uint) (*model.LiveRoom, error) {
	var room model.LiveRoom
	if err := tx.First(&room, id).Error; err != nil {
		return nil, database.Translate("live_room", err)
	}
	return &room, nil
}

// UpdateRoom applies a partial update to a room of a course actor manages
func (s *LiveService) UpdateRoom(ctx context.Context, actor *model.User, id uint, req UpdateRoomRequest) (*model.LiveRoom, error) {
	if err := validateRequest("live_room", req); err != nil {
		return nil, err
	}

	var room *model.LiveRoom
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if room, err = loadRoom(tx, id); err != nil {
			return err
		}
		if _, err := requireCourseManager(tx, actor, room.CourseID); err != nil {
			return err
		}

		if req.Title != nil {
			room.Title = *req.Title
		}
		if req.Description != nil {
			room.Description = req.Description
		}
		if req.StartTS != nil {
			room.StartTS = *req.StartTS
		}
		if req.EndTS != nil {
			room.EndTS = *req.EndTS
		}
		if req.IsActive != nil {
			room.IsActive = *req.IsActive
		}
		if req.RecordingURL != nil {
			room.RecordingURL = req.RecordingURL
		}
		if req.MaxParticipants != nil {
			room.MaxParticipants = *req.MaxParticipants
		}
		return database.Translate("live_room", tx.Save(room).Error)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// DeleteRoom removes a room that is not currently running
func (s *LiveService) DeleteRoom(ctx context.Context, actor *model.User, id uint) error {
	return withTx(ctx, s.db, func(tx *gorm.DB) error {
		room, err := loadRoom(tx, id)
		if err != nil {
			return err
		}
		if _, err := requireCourseManager(tx, actor, room.CourseID); err != nil {
			return err
		}
		if room.IsLive(s.now()) {
			return apperr.Conflict("cannot delete a room while it is live")
		}
		return database.Translate("live_room", tx.Delete(room).Error)
	})
}

// JoinRoom checks that actor may enter the room, records attendance and issues a token.
// The course manager joins as a publisher, everyone else as a subscriber.
func (s *LiveService) JoinRoom(ctx context.Context, actor *model.User, id uint) (*JoinInfo, error) {
	now := s.now()

	var info *JoinInfo
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		// the row lock serializes joins of one room until the attendance row is written
		room, err := loadRoom(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		course, err := loadCourse(tx, room.CourseID)
		if err != nil {
			return err
		}

		host := canManageCourse(actor, course)
		if !host {
			enrolled, err := hasCourseAccess(tx, actor.ID, course.ID, now)
			if err != nil {
				return fmt.Errorf("failed to check enrollment: %w", err)
			}
			if !enrolled {
				return apperr.Forbidden("enroll in the course to join its live classes")
			}
		}
		if !room.IsLive(now) {
			return apperr.Conflict("room is not live")
		}

		token, err := s.tokens.Issue(room.RoomName, livekit.Participant{
			Identity:     fmt.Sprint(actor.ID),
			DisplayName:  actor.Name,
			CanPublish:   host,
			CanSubscribe: true,
		})
		if err != nil {
			return err
		}

		if err := s.recordJoin(tx, room, actor.ID, now); err != nil {
			return err
		}
		info = &JoinInfo{Token: token, URL: s.url, RoomName: room.RoomName}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("participant joined live room", "room_id", id, "user_id", actor.ID)
	return info, nil
}

// recordJoin opens attendance for userID, reopening an earlier row on rejoin.
// Participants who are not already present are refused once the room is at capacity.
func (s *LiveService) recordJoin(tx *gorm.DB, room *model.LiveRoom, userID uint, now time.Time) error {
	var attendance model.Attendance
	err := tx.Where("room_id = ? AND user_id = ?", room.ID, userID).First(&attendance).Error
	found := err == nil
	if !found && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load attendance: %w", err)
	}
	if found && attendance.LeftAt == nil {
		return nil
	}

	var present int64
	err = tx.Model(&model.Attendance{}).
		Where("room_id = ? AND left_at IS NULL", room.ID).
		Count(&present).Error
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if int(present) >= room.MaxParticipants {
		return apperr.Conflict("room is full")
	}

	if found {
		attendance.LeftAt = nil
		return database.Translate("attendance", tx.Save(&attendance).Error)
	}
	attendance = model.Attendance{RoomID: room.ID, UserID: userID, JoinedAt: now}
	return database.Translate("attendance", tx.Create(&attendance).Error)
}

// LeaveRoom closes the open attendance of actor in the room
func (s *LiveService) LeaveRoom(ctx context.Context, actor *model.User, id uint) (*model.Attendance, error) {
	var attendance model.Attendance
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		err := tx.Where("room_id = ? AND user_id = ?", id, actor.ID).First(&attendance).Error
		if err != nil {
			return database.Translate("attendance", err)
		}
		if attendance.LeftAt != nil {
			return nil
		}
		attendance.Leave(s.now())
		return database.Translate("attendance", tx.Save(&attendance).Error)
	})
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

// Attendance lists who attended a room. Only the course manager can see it.
func (s *LiveService) Attendance(ctx context.Context, actor *model.User, id uint) ([]model.Attendance, error) {
	db := s.db.WithContext(ctx)
	room, err := loadRoom(db, id)
	if err != nil {
		return nil, err
	}
	if _, err := requireCourseManager(db, actor, room.CourseID); err != nil {
		return nil, err
	}

	var rows []model.Attendance
	err = db.Preload("User").
		Where("room_id = ?", id).
		Order("joined_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return rows, nil
}

// DeactivateEnded closes rooms whose end time has passed. Open attendance rows
// of those rooms are closed at the room's end time.
func (s *LiveService) DeactivateEnded(ctx context.Context, now time.Time) (int64, error) {
	var closed int64
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var rooms []model.LiveRoom
		if err := tx.Where("is_active = ? AND end_ts <= ?", true, now).Find(&rooms).Error; err != nil {
			return fmt.Errorf("failed to find ended rooms: %w", err)
		}
		if len(rooms) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(rooms))
		for i := range rooms {
			room := &rooms[i]
			ids = append(ids, room.ID)

			var open []model.Attendance
			if err := tx.Where("room_id = ? AND left_at IS NULL", room.ID).Find(&open).Error; err != nil {
				return fmt.Errorf("failed to find open attendance: %w", err)
			}
			for j := range open {
				end := room.EndTS
				if end.Before(open[j].JoinedAt) {
					end = open[j].JoinedAt
				}
				open[j].Leave(end)
				if err := tx.Save(&open[j]).Error; err != nil {
					return database.Translate("attendance", err)
				}
			}
		}

		result := tx.Session(&gorm.Session{SkipHooks: true}).
			Model(&model.LiveRoom{}).
			Where("id IN ?", ids).
			Update("is_active", false)
		if result.Error != nil {
			return fmt.Errorf("failed to deactivate rooms: %w", result.Error)
		}
		closed = result.RowsAffected
		return nil
	})
	return closed, err
}
