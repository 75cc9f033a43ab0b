package domain

import "errors"

// Persistence-level failures. Services translate these before they leave the app layer.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrForeignKey = errors.New("foreign key violation")
	ErrUnscoped   = errors.New("query issued without tenant scope")
)
