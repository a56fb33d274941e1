package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/csvdatasets/internal/auth"
	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/files"
)

// Kind classifies why an ingestion failed.
type Kind string

const (
	KindAuth           Kind = "auth"
	KindNotFound       Kind = "not_found"
	KindEmptyInput     Kind = "empty_input"
	KindPersistence    Kind = "persistence"
	KindInvalidRequest Kind = "invalid_request"
	KindBusy           Kind = "busy"
	KindTooLarge       Kind = "too_large"
)

var (
	ErrDatasetNameRequired = errors.New("dataset name is required")
	ErrFilePathRequired    = errors.New("file path is required")
)

// IngestError is the terminal error of an ingestion: the phase it failed
// in, its kind, and the originating error.
type IngestError struct {
	Phase Phase
	Kind  Kind
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s (%s): %v", e.Phase, e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, classifying errors that did not come
// out of Ingest by their sentinel. Unknown errors return "".
func KindOf(err error) Kind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return classify(PhaseIdle, err)
}

// classify maps an error raised in phase to a Kind. Sentinels win; the
// phase decides the rest.
func classify(phase Phase, err error) Kind {
	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return KindAuth
	case errors.Is(err, ErrTooManyIngestions):
		return KindBusy
	case errors.Is(err, files.ErrTooLarge):
		return KindTooLarge
	case errors.Is(err, files.ErrInvalidPath),
		errors.Is(err, ErrDatasetNameRequired),
		errors.Is(err, ErrFilePathRequired):
		return KindInvalidRequest
	case errors.Is(err, files.ErrNotFound):
		return KindNotFound
	case errors.Is(err, csv.ErrEmptyInput):
		return KindEmptyInput
	}

	switch phase {
	case PhaseDownloading:
		return KindNotFound
	case PhaseParsing:
		return KindInvalidRequest
	case PhaseCreatingDataset, PhaseInsertingRows:
		return KindPersistence
	}
	return ""
}
