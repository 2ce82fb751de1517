package shared

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every handler. Validator instances cache parsed
// struct tags, so one instance serves the whole API surface.
var validate = validator.New()

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ValidateRequest checks v against its validate struct tags.
func ValidateRequest(v any) error {
	return validate.Struct(v)
}
