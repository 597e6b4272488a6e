package httpx

import (
	"errors"
	"net/http"

	"github.com/salus-crm/salus-crm/internal/shared"
)

// RespondError maps domain errors to envelope responses. Unrecognized
// errors collapse to a generic internal error so nothing leaks.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, "not_found", "Recurso não encontrado", "NOT_FOUND", nil)
	case errors.Is(err, shared.ErrDuplicate):
		Error(w, http.StatusConflict, "conflict", "Registro já existe", "DUPLICATE", nil)
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, "bad_request", err.Error(), "VALIDATION_FAILED", nil)
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusBadRequest, "bad_request", "Email ou senha inválidos", "INVALID_CREDENTIALS", nil)
	default:
		Error(w, http.StatusInternalServerError, "internal", "Erro interno do servidor", "INTERNAL_ERROR", nil)
	}
}
