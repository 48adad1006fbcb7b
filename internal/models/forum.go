package models

import "time"

// ForumPost is a message on a course discussion board.
type ForumPost struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name,omitempty"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CreateForumPostRequest is the body of a new post.
type CreateForumPostRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}
