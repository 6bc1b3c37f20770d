package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// MaxContentLength caps one message body, mirrored by the validate tag below.
const MaxContentLength = 4000

// SendRequest mirrors the fields of a send command that are worth rejecting
// before touching the session gate or the store.
type SendRequest struct {
	Target  string `validate:"required"`
	Content string `validate:"required,max=4000"`
}

func ValidateSend(req SendRequest) error {
	return validate.Struct(req)
}
