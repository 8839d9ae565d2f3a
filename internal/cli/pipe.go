// Package cli implements the command-line surfaces of habitsim.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/recommend"
	"go.uber.org/zap"
)

// Pipe answers one JSON request read from stdin with one JSON document on stdout.
type Pipe struct {
	svc    *recommend.Service
	logger *zap.Logger
}

// NewPipe creates a Pipe over svc. A nil logger discards logs.
func NewPipe(svc *recommend.Service, logger *zap.Logger) *Pipe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipe{svc: svc, logger: logger}
}

// Run reads a request from r and writes exactly one response document to w. Request
// problems become {"error": ...} bodies; the returned error is only set when writing fails.
// When train is true the request's habits are vectorized and saved instead of ranked.
func (p *Pipe) Run(ctx context.Context, r io.Reader, w io.Writer, train bool) error {
	return writeJSON(w, p.respond(ctx, r, train))
}

func (p *Pipe) respond(ctx context.Context, r io.Reader, train bool) interface{} {
	req, err := models.DecodeRequest(r)
	if err != nil {
		p.logger.Debug("invalid request", zap.Error(err))
		return models.ErrorResponse{Error: models.MsgInvalidInput}
	}

	if train {
		resp, err := p.svc.Train(ctx, req.Habits)
		if err != nil {
			p.logger.Error("training failed", zap.Error(err))
			return models.ErrorResponse{Error: models.MsgSaveFailed}
		}
		return resp
	}

	resp, err := p.svc.Handle(ctx, req)
	switch {
	case errors.Is(err, recommend.ErrMissingTarget):
		return models.ErrorResponse{Error: models.MsgMissingTarget}
	case err != nil:
		p.logger.Debug("request rejected", zap.Error(err))
		return models.ErrorResponse{Error: models.MsgInvalidInput}
	}
	return resp
}

func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
