package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/validation"
	"gorm.io/gorm"
)

// CommentService handles lesson discussions
type CommentService struct {
	db *gorm.DB
}

// NewCommentService creates a new comment service
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// CreateCommentRequest represents a request to post a comment
type CreateCommentRequest struct {
	LessonID uint   `json:"lesson_id" validate:"required"`
	ParentID *uint  `json:"parent_id" validate:"omitempty,gt=0"`
	Body     string `json:"body" validate:"required,max=5000"`
}

// UpdateCommentRequest represents an edit of a comment body
type UpdateCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// CommentNode is a comment with its replies, oldest first
type CommentNode struct {
	model.Comment
	Replies []*CommentNode `json:"replies"`
}

// Create posts a comment. A reply's parent must exist and belong to the same lesson.
func (s *CommentService) Create(ctx context.Context, actor *model.User, req CreateCommentRequest) (*model.Comment, error) {
	req.Body = validation.SanitizeString(req.Body)
	if err := validateRequest("comment", req); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		UserID:   actor.ID,
		LessonID: req.LessonID,
		ParentID: req.ParentID,
		Body:     req.Body,
	}
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var lesson model.Lesson
		if err := tx.Select("id").First(&lesson, req.LessonID).Error; err != nil {
			return database.Translate("lesson", err)
		}

		if req.ParentID != nil {
			var parent model.Comment
			err := tx.Select("id", "lesson_id").First(&parent, *req.ParentID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("comment", "parent_id", "foreign_key", "parent comment does not exist")
			}
			if err != nil {
				return fmt.Errorf("failed to load parent comment: %w", err)
			}
			if parent.LessonID != req.LessonID {
				return apperr.Validation("comment", "parent_id", "same_lesson", "parent comment belongs to another lesson")
			}
		}

		return database.Translate("comment", tx.Create(comment).Error)
	})
	if err != nil {
		return nil, err
	}

	comment.User = actor
	return comment, nil
}

// Update edits the body of a comment written by actor
func (s *CommentService) Update(ctx context.Context, actor *model.User, id uint, req UpdateCommentRequest) (*model.Comment, error) {
	req.Body = validation.SanitizeString(req.Body)
	if err := validateRequest("comment", req); err != nil {
		return nil, err
	}

	var comment model.Comment
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&comment, id).Error; err != nil {
			return database.Translate("comment", err)
		}
		if comment.UserID != actor.ID {
			return apperr.Forbidden("only the author can edit this comment")
		}
		if comment.IsDeleted {
			return apperr.Conflict("deleted comments cannot be edited")
		}

		comment.Body = req.Body
		comment.IsEdited = true
		return database.Translate("comment", tx.Save(&comment).Error)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete tombstones a comment. Replies stay in the thread under the tombstone.
func (s *CommentService) Delete(ctx context.Context, actor *model.User, id uint) error {
	return withTx(ctx, s.db, func(tx *gorm.DB) error {
		var comment model.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			return database.Translate("comment", err)
		}
		if comment.UserID != actor.ID && !actor.IsAdmin() {
			return apperr.Forbidden("only the author or an admin can delete this comment")
		}
		if comment.IsDeleted {
			return nil
		}

		comment.Tombstone()
		return database.Translate("comment", tx.Save(&comment).Error)
	})
}

// Thread returns the comments of a lesson as a forest of root comments
func (s *CommentService) Thread(ctx context.Context, lessonID uint) ([]*CommentNode, error) {
	db := s.db.WithContext(ctx)

	var lesson model.Lesson
	if err := db.Select("id").First(&lesson, lessonID).Error; err != nil {
		return nil, database.Translate("lesson", err)
	}

	var comments []model.Comment
	err := db.Preload("User").
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	return BuildThread(comments), nil
}

// BuildThread assembles flat comments into a forest. Nodes live in one slice and
// each keeps the indexes of its children. Comments whose parent is absent become roots.
func BuildThread(comments []model.Comment) []*CommentNode {
	sorted := make([]model.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	nodes := make([]CommentNode, len(sorted))
	byID := make(map[uint]int, len(sorted))
	for i := range sorted {
		nodes[i] = CommentNode{Comment: sorted[i], Replies: []*CommentNode{}}
		byID[sorted[i].ID] = i
	}

	children := make([][]int, len(nodes))
	var roots []int
	for i := range nodes {
		parent := nodes[i].ParentID
		if parent == nil {
			roots = append(roots, i)
			continue
		}
		p, ok := byID[*parent]
		if !ok || p == i {
			roots = append(roots, i)
			continue
		}
		children[p] = append(children[p], i)
	}

	for i := range nodes {
		for _, c := range children[i] {
			nodes[i].Replies = append(nodes[i].Replies, &nodes[c])
		}
	}

	forest := make([]*CommentNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, &nodes[r])
	}
	return forest
}
