package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/layout"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/telemetry"
	"github.com/starford/canvasai/internal/templates"
)

// Request limits.
const (
	MaxObjects        = 5000
	MaxCommandRunes   = 10000
	MaxIDLength       = 128
	MaxIdempotencyKey = 128
)

// CommandRequest is the request body for running a command on a board.
type CommandRequest struct {
	Command        string          `json:"command" example:"Create a SWOT analysis"`
	UserID         string          `json:"userId" example:"user-1" validate:"required"`
	Objects        []canvas.Object `json:"objects"`
	ViewportCenter *canvas.Point   `json:"viewportCenter,omitempty"`
	SelectedIDs    []string        `json:"selectedObjectIds,omitempty"`
}

// Validate validates the request body. An empty command is not an error
// here; the pipeline answers it with a failed result.
func (r *CommandRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Command, validation.RuneLength(0, MaxCommandRunes)),
		validation.Field(&r.UserID, validation.Required, validation.Length(1, MaxIDLength)),
		validation.Field(&r.Objects, validation.Length(0, MaxObjects)),
		validation.Field(&r.SelectedIDs, validation.Length(0, MaxObjects)),
	)
}

// PipelineCommand converts the request into a pipeline command for boardID.
func (r *CommandRequest) PipelineCommand(boardID string) pipeline.Command {
	return pipeline.Command{
		Text:           r.Command,
		BoardID:        boardID,
		UserID:         r.UserID,
		Objects:        r.Objects,
		ViewportCenter: r.ViewportCenter,
		SelectedIDs:    r.SelectedIDs,
	}
}

// CommandResult is the response of a command (aliased from the pipeline).
type CommandResult = pipeline.Result

// LayoutRequest is the request body for arranging objects.
type LayoutRequest struct {
	Objects []canvas.Object `json:"objects" validate:"required"`
	Options layout.Options  `json:"options"`
}

// Validate validates the request body.
func (r *LayoutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Objects, validation.Length(0, MaxObjects)),
	)
}

// LayoutResult is the response of an arrangement (aliased from the layout package).
type LayoutResult = layout.Result

// PortsRequest is the request body for port suggestion.
type PortsRequest struct {
	From canvas.Object `json:"from" validate:"required"`
	To   canvas.Object `json:"to" validate:"required"`
}

// Validate validates the request body.
func (r *PortsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.By(positiveSize)),
		validation.Field(&r.To, validation.By(positiveSize)),
	)
}

func positiveSize(v any) error {
	o, _ := v.(canvas.Object)
	if o.Width <= 0 || o.Height <= 0 {
		return errors.New("must have a positive width and height")
	}
	return nil
}

// PortsResponse holds the suggested connection sides.
type PortsResponse struct {
	FromPort canvas.Port `json:"fromPort" example:"right" validate:"required"`
	ToPort   canvas.Port `json:"toPort" example:"left" validate:"required"`
}

// TemplatesResponse lists the registered templates.
type TemplatesResponse struct {
	Templates []templates.Info `json:"templates" validate:"required"`
}

// TracesResponse wraps recent command traces.
type TracesResponse struct {
	Traces []telemetry.TraceRecord `json:"traces" validate:"required"`
}
