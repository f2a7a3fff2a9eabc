// internal/models/community.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Project is a community showcase entry that comments hang off.
type Project struct {
	BaseModel
	AuthorID     uuid.UUID      `json:"author_id" gorm:"type:uuid;not null;index"`
	Title        string         `json:"title" gorm:"size:255;not null"`
	Body         string         `json:"body" gorm:"type:text"`
	Images       pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status       ProjectStatus  `json:"status" gorm:"type:varchar(20);default:'published';index"`
	ViewCount    int64          `json:"view_count" gorm:"default:0"`
	CommentCount int64          `json:"comment_count" gorm:"default:0"`

	// Relationships
	Author   User      `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:ProjectID"`
}

// Comment is a flat row; ParentID links replies into a tree built at read
// time by the community service.
type Comment struct {
	BaseModel
	ProjectID uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	Body      string     `json:"body" gorm:"type:text;not null"`
	Score     int64      `json:"score" gorm:"default:0"`

	// Relationships
	Project Project       `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	User    User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Votes   []CommentVote `json:"votes,omitempty" gorm:"foreignKey:CommentID"`
}

// CommentVote records one user's vote on one comment.
type CommentVote struct {
	BaseModel
	CommentID uuid.UUID `json:"comment_id" gorm:"type:uuid;not null;uniqueIndex:idx_comment_votes_comment_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_comment_votes_comment_user"`
	Value     VoteValue `json:"value" gorm:"not null"`
}
