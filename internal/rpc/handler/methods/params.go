// Package methods binds lfsdesk commands to JSON-RPC methods.
package methods

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/brianly1003/lfsdesk/internal/domain"
	"github.com/brianly1003/lfsdesk/internal/domain/commands"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeParams unmarshals params into dst and validates it. Absent params are
// treated as an empty object.
func decodeParams(params json.RawMessage, dst interface{}) *message.Error {
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, dst); err != nil {
			return message.ErrInvalidParams("failed to parse params: " + err.Error())
		}
	}
	if err := validate.Struct(dst); err != nil {
		return message.ErrInvalidParams(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	return strings.Join(lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		if fe.Tag() == "required" {
			return fe.Field() + " is required"
		}
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}), "; ")
}

// toRPCError maps domain failures onto protocol error codes.
func toRPCError(err error) *message.Error {
	var (
		stale   *domain.StaleRegistryError
		invalid *domain.ValidationError
		adapter *domain.AdapterError
	)
	switch {
	case errors.As(err, &stale):
		return message.ErrStaleRegistry(stale.Path, stale.Owner, stale.ID)
	case errors.Is(err, domain.ErrNoRepository):
		return message.ErrNoRepository()
	case errors.Is(err, domain.ErrHistoryDisabled):
		return message.ErrHistoryDisabled()
	case errors.As(err, &invalid):
		return message.ErrInvalidParams(invalid.Message)
	case errors.As(err, &adapter):
		return message.ErrLFSOperationFailed(adapter.Op, adapter.Error())
	default:
		return message.ErrInternalError(err.Error())
	}
}

// Request params. Completion handles are flattened into each command that
// calls git.

type selectParams struct {
	commands.Completion
}

type listParams struct {
	commands.Completion
}

type releaseAllParams struct {
	commands.Completion
}

type filterParams struct {
	Filter *string `json:"filter" validate:"required"`
}

type lockParams struct {
	Path string `json:"path" validate:"required"`
	commands.Completion
}

type unlockParams struct {
	ID *uint64 `json:"id" validate:"required"`
	commands.Completion
}

type echoParams struct {
	Message *string `json:"message" validate:"required"`
}

type historyParams struct {
	Limit int `json:"limit" validate:"gte=0,lte=10000"`
}

type subscribeParams struct {
	Types []string `json:"types" validate:"required,min=1,dive,required"`
}
