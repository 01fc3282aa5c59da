package models

import (
	"time"
)

type User struct {
	UserID                 string     `json:"userId" db:"user_id"`
	Username               string     `json:"username" db:"username"`
	Email                  string     `json:"email" db:"email"`
	PasswordHash           string     `json:"-" db:"password_hash"`
	RefreshToken           *string    `json:"-" db:"refresh_token"`
	RefreshTokenExpiryTime *time.Time `json:"-" db:"refresh_token_expiry_time"`
	CreatedAt              time.Time  `json:"createdAt" db:"created_at"`
}

type Post struct {
	PostID    string         `json:"id" db:"post_id"`
	UserID    string         `json:"userId" db:"user_id"`
	Title     string         `json:"title" db:"title"`
	Content   string         `json:"content" db:"content"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
	Images    []PostImageRef `json:"images" db:"-"`
}

// PostImageRef is a denormalized, non-owning reference to a StoredObject.
type PostImageRef struct {
	PostID      string `json:"-" db:"post_id"`
	Position    int    `json:"-" db:"position"`
	FileID      string `json:"fileId" db:"file_id"`
	Filename    string `json:"filename" db:"filename"`
	ContentType string `json:"contentType" db:"content_type"`
	Size        int64  `json:"size" db:"size"`
}

type Workout struct {
	WorkoutID string    `json:"id" db:"workout_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Reps      int       `json:"reps" db:"reps"`
	Load      float64   `json:"load" db:"load"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// StoredObject is the metadata record of a binary payload kept in the object store.
type StoredObject struct {
	ID          string         `json:"id"`
	StorageName string         `json:"storageName"`
	Length      int64          `json:"length"`
	ChunkSize   int32          `json:"chunkSize,omitempty"`
	UploadDate  time.Time      `json:"uploadDate"`
	Metadata    ObjectMetadata `json:"metadata"`
}

type ObjectMetadata struct {
	OriginalName string    `json:"originalName" bson:"originalName"`
	UploadedBy   string    `json:"uploadedBy" bson:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
	ContentType  string    `json:"contentType" bson:"contentType"`
}
