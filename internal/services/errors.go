package services

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoRecentQuery    = errors.New("no recent query to attach feedback to")
)

// InvalidParameterError rejects caller input before any state is touched.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

func invalidParam(field, reason string) error {
	return &InvalidParameterError{Field: field, Reason: reason}
}

// Stage names which leg of the pipeline a failure came from, so handlers and
// the ingestion status can report it without unpacking provider errors.
type Stage string

const (
	StageExtraction  Stage = "extraction"
	StageEmbedding   Stage = "embedding"
	StageVectorStore Stage = "vector_store"
	StageGeneration  Stage = "generation"
	StageStorage     Stage = "storage"
)

type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	if e == nil {
		return "pipeline stage failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func stageErr(stage Stage, cause error) error {
	if cause == nil {
		return nil
	}
	return &StageError{Stage: stage, Cause: cause}
}
