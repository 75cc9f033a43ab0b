package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"reviewhub/internal/apperr"
	"reviewhub/internal/domain"
)

// translate maps repository failures onto the apperr taxonomy. Errors that
// already carry a kind pass through; defects are logged once here.
func translate(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		logDefect(op, ae)
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound(resource)
	case errors.Is(err, domain.ErrDuplicate):
		return apperr.Constraint(resource+" already exists", err)
	case errors.Is(err, domain.ErrForeignKey):
		return apperr.Constraint(resource+" references a missing record", err)
	}
	ie := apperr.Internal(op+" failed", err)
	logDefect(op, ie)
	return ie
}

func logDefect(op string, e *apperr.Error) {
	switch e.Kind {
	case apperr.KindConversion, apperr.KindInternal:
		log.Error().Err(e).Str("op", op).Str("kind", e.Kind.String()).Msg("service defect")
	}
}
