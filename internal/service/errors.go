package service

import "errors"

var (
	// ErrAuthRequired indicates no credential is on file for the principal.
	// The caller must send the user through the login flow; never retried.
	ErrAuthRequired = errors.New("authentication required")

	// ErrReauthRequired indicates the stored refresh token was rejected by
	// the upstream provider. The caller must surface this to the end user;
	// never retried automatically.
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrCacheWrite indicates the persistence layer rejected an upsert.
	// Write-through paths log and swallow it; sync-to-cache paths that exist
	// to populate the cache return it to the caller.
	ErrCacheWrite = errors.New("cache write failed")

	// ErrPrincipalNotFound indicates the principal id is unknown locally.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrCourseNotFound indicates the course is not in the local cache.
	ErrCourseNotFound = errors.New("course not found")

	// ErrTeacherNotFound indicates the principal is unknown or not a teacher.
	ErrTeacherNotFound = errors.New("teacher not found")
)
