// internal/services/community_service.go
package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/database"
	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

// CommunityService covers project showcases and their threaded comments.
type CommunityService struct {
	db *gorm.DB
}

type CreateProjectRequest struct {
	Title  string   `json:"title" validate:"required,max=255"`
	Body   string   `json:"body" validate:"max=50000"`
	Images []string `json:"images,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type UpdateProjectRequest struct {
	Title  *string               `json:"title,omitempty"`
	Body   *string               `json:"body,omitempty"`
	Images []string              `json:"images,omitempty"`
	Tags   []string              `json:"tags,omitempty"`
	Status *models.ProjectStatus `json:"status,omitempty"`
}

type CreateCommentRequest struct {
	Body     string     `json:"body" validate:"required,max=10000"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// CommentNode is a comment with its replies resolved, as served to clients.
type CommentNode struct {
	Comment models.Comment `json:"comment"`
	Depth   int            `json:"depth"`
	Replies []*CommentNode `json:"replies"`
}

func NewCommunityService(db *gorm.DB) *CommunityService {
	return &CommunityService{db: db}
}

// Projects

func (s *CommunityService) CreateProject(authorID uuid.UUID, req *CreateProjectRequest) (*models.Project, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	project := &models.Project{
		AuthorID: authorID,
		Title:    req.Title,
		Body:     req.Body,
		Images:   req.Images,
		Tags:     req.Tags,
		Status:   models.ProjectStatusPublished,
	}

	if err := s.db.Create(project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

func (s *CommunityService) GetProject(id uuid.UUID, viewerID *uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Author").First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("project not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if project.Status != models.ProjectStatusPublished {
		if viewerID == nil || *viewerID != project.AuthorID {
			return nil, errors.New("project not found")
		}
	}

	if viewerID == nil || *viewerID != project.AuthorID {
		go func() {
			s.db.Model(&models.Project{}).
				Where("id = ?", id).
				UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		}()
	}

	return &project, nil
}

func (s *CommunityService) UpdateProject(id, authorID uuid.UUID, req *UpdateProjectRequest) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("project not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if project.AuthorID != authorID {
		return nil, errors.New("unauthorized to update project")
	}

	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Body != nil {
		project.Body = *req.Body
	}
	if req.Images != nil {
		project.Images = req.Images
	}
	if req.Tags != nil {
		project.Tags = req.Tags
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := s.db.Save(&project).Error; err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return &project, nil
}

func (s *CommunityService) DeleteProject(id, userID uuid.UUID, isAdmin bool) error {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("project not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if project.AuthorID != userID && !isAdmin {
		return errors.New("unauthorized to delete project")
	}

	if err := s.db.Delete(&project).Error; err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

func (s *CommunityService) ListProjects(params utils.PaginationParams, tag string) ([]models.Project, int64, error) {
	query := s.db.Model(&models.Project{}).
		Where("status = ?", models.ProjectStatusPublished).
		Preload("Author")

	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("title ILIKE ? OR body ILIKE ?", searchTerm, searchTerm)
	}
	if tag != "" {
		query = query.Where("? = ANY(tags)", tag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	allowedSortFields := []string{"created_at", "view_count", "comment_count"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch projects: %w", err)
	}

	return projects, total, nil
}

// Comments

func (s *CommunityService) CreateComment(projectID, userID uuid.UUID, req *CreateCommentRequest) (*models.Comment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("project not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if project.Status != models.ProjectStatusPublished {
		return nil, errors.New("cannot comment on unpublished project")
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := s.db.First(&parent, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("parent comment not found")
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
		if parent.ProjectID != projectID {
			return nil, errors.New("parent comment belongs to a different project")
		}
	}

	comment := &models.Comment{
		ProjectID: projectID,
		UserID:    userID,
		ParentID:  req.ParentID,
		Body:      req.Body,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return tx.Model(&models.Project{}).
			Where("id = ?", projectID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("User").First(comment, comment.ID)
	return comment, nil
}

func (s *CommunityService) DeleteComment(commentID, userID uuid.UUID, isAdmin bool) error {
	var comment models.Comment
	if err := s.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("comment not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if comment.UserID != userID && !isAdmin {
		return errors.New("unauthorized to delete comment")
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		// Soft delete keeps replies attached; the tree builder promotes them
		if err := tx.Delete(&comment).Error; err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return tx.Model(&models.Project{}).
			Where("id = ? AND comment_count > 0", comment.ProjectID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}

// GetCommentTree loads a project's comments and assembles the reply forest.
func (s *CommunityService) GetCommentTree(projectID uuid.UUID) ([]*CommentNode, error) {
	var comments []models.Comment
	if err := s.db.Where("project_id = ?", projectID).
		Preload("User").
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}

	return BuildCommentTree(comments), nil
}

// BuildCommentTree folds flat comment rows into a forest. Roots are
// comments with no parent; a comment whose parent is missing from the set
// (deleted, or filtered out) is promoted to a root rather than dropped.
// Roots sit at depth 0, each reply one deeper than its parent. Sibling
// order is highest score first, then oldest first.
func BuildCommentTree(comments []models.Comment) []*CommentNode {
	nodes := make(map[uuid.UUID]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i]}
	}

	var roots []*CommentNode
	for _, node := range nodes {
		if node.Comment.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*node.Comment.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}

	sortSiblings(roots)
	for _, root := range roots {
		assignDepth(root, 0)
	}

	return roots
}

func assignDepth(node *CommentNode, depth int) {
	node.Depth = depth
	sortSiblings(node.Replies)
	for _, reply := range node.Replies {
		assignDepth(reply, depth+1)
	}
}

func sortSiblings(siblings []*CommentNode) {
	sort.SliceStable(siblings, func(i, j int) bool {
		if siblings[i].Comment.Score != siblings[j].Comment.Score {
			return siblings[i].Comment.Score > siblings[j].Comment.Score
		}
		return siblings[i].Comment.CreatedAt.Before(siblings[j].Comment.CreatedAt)
	})
}

// Votes

// VoteComment records or adjusts a user's vote. Voting the same direction
// twice removes the vote; voting the other direction flips it. The comment
// score tracks the sum of vote values.
func (s *CommunityService) VoteComment(commentID, userID uuid.UUID, value models.VoteValue) (*models.Comment, error) {
	if value != models.VoteUp && value != models.VoteDown {
		return nil, errors.New("invalid vote value")
	}

	var comment models.Comment
	if err := s.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("comment not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var existing models.CommentVote
		err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).First(&existing).Error

		var delta int64
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := &models.CommentVote{CommentID: commentID, UserID: userID, Value: value}
			if err := tx.Create(vote).Error; err != nil {
				return fmt.Errorf("failed to create vote: %w", err)
			}
			delta = int64(value)

		case err != nil:
			return fmt.Errorf("database error: %w", err)

		case existing.Value == value:
			// Same direction again: retract the vote
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return fmt.Errorf("failed to remove vote: %w", err)
			}
			delta = -int64(value)

		default:
			// Flip direction
			existing.Value = value
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update vote: %w", err)
			}
			delta = 2 * int64(value)
		}

		return tx.Model(&models.Comment{}).
			Where("id = ?", commentID).
			UpdateColumn("score", gorm.Expr("score + ?", delta)).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Preload("User").First(&comment, commentID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload comment: %w", err)
	}

	return &comment, nil
}
