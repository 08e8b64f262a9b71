package handler

import (
	"context"
	"encoding/json"

	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

// DiscoverMethod is the standard OpenRPC service discovery method.
const DiscoverMethod = "rpc.discover"

// OpenRPCSpec represents the OpenRPC specification.
type OpenRPCSpec struct {
	OpenRPC    string            `json:"openrpc"`
	Info       OpenRPCInfo       `json:"info"`
	Methods    []OpenRPCMethod   `json:"methods"`
	Components OpenRPCComponents `json:"components"`
}

// OpenRPCInfo contains API metadata.
type OpenRPCInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// OpenRPCMethod represents a JSON-RPC method.
type OpenRPCMethod struct {
	Name        string            `json:"name"`
	Summary     string            `json:"summary"`
	Description string            `json:"description,omitempty"`
	Params      []OpenRPCParam    `json:"params"`
	Result      *OpenRPCResult    `json:"result,omitempty"`
	Errors      []OpenRPCErrorRef `json:"errors,omitempty"`
}

// OpenRPCParam represents a method parameter.
type OpenRPCParam struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Required    bool                   `json:"required"`
	Schema      map[string]interface{} `json:"schema"`
}

// OpenRPCResult represents a method result.
type OpenRPCResult struct {
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
}

// OpenRPCErrorRef references an error definition.
type OpenRPCErrorRef struct {
	Ref string `json:"$ref,omitempty"`
}

// OpenRPCComponents contains reusable components.
type OpenRPCComponents struct {
	Errors map[string]interface{} `json:"errors,omitempty"`
}

// MethodMeta contains metadata for a registered method.
type MethodMeta struct {
	Summary     string
	Description string
	Params      []OpenRPCParam
	Result      *OpenRPCResult
	Errors      []string // Error names to reference
}

// GenerateOpenRPC generates an OpenRPC spec from the registry.
func (r *Registry) GenerateOpenRPC(info OpenRPCInfo) *OpenRPCSpec {
	spec := &OpenRPCSpec{
		OpenRPC: "1.2.6",
		Info:    info,
		Methods: make([]OpenRPCMethod, 0),
		Components: OpenRPCComponents{
			Errors: defaultErrors(),
		},
	}

	for _, name := range r.Methods() {
		meta := r.GetMeta(name)
		method := OpenRPCMethod{
			Name:        name,
			Summary:     meta.Summary,
			Description: meta.Description,
			Params:      meta.Params,
			Result:      meta.Result,
		}
		if method.Params == nil {
			method.Params = []OpenRPCParam{}
		}
		for _, errName := range meta.Errors {
			method.Errors = append(method.Errors, OpenRPCErrorRef{
				Ref: "#/components/errors/" + errName,
			})
		}
		spec.Methods = append(spec.Methods, method)
	}

	return spec
}

// ToJSON returns the OpenRPC spec as JSON.
func (spec *OpenRPCSpec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

// RegisterDiscover registers rpc.discover, which answers with the generated spec.
func (r *Registry) RegisterDiscover(info OpenRPCInfo) {
	r.RegisterWithMeta(DiscoverMethod, func(ctx context.Context, params json.RawMessage) (interface{}, *message.Error) {
		return r.GenerateOpenRPC(info), nil
	}, MethodMeta{
		Summary: "Describe every method this server understands",
		Result:  &OpenRPCResult{Name: "spec", Schema: map[string]interface{}{"type": "object"}},
	})
}

func defaultErrors() map[string]interface{} {
	entry := func(code int, msg string) map[string]interface{} {
		return map[string]interface{}{"code": code, "message": msg}
	}
	return map[string]interface{}{
		"InvalidParams":      entry(message.InvalidParams, "Missing or malformed params"),
		"LFSOperationFailed": entry(message.LFSOperationFailed, "git lfs reported a failure"),
		"StaleRegistry":      entry(message.StaleRegistry, "Path already locked according to the lock registry"),
		"NoRepository":       entry(message.NoRepository, "No repository selected"),
		"HistoryDisabled":    entry(message.HistoryDisabled, "Lock history is disabled"),
	}
}
