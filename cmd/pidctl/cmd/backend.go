package cmd

import (
	"context"
	"time"

	"prms/internal/pid"
	"prms/internal/pid/export"
	"prms/internal/pid/handler"
)

// backend is what the subcommands need, served either by a local codec or
// by a prms server.
type backend interface {
	Issue(ctx context.Context) (export.Row, error)
	Validate(ctx context.Context, candidate string, strict bool) (handler.ValidationResponse, error)
	Parse(ctx context.Context, candidate string) (pid.Components, error)
	QRPayload(ctx context.Context, candidate string) (string, error)
}

type localBackend struct {
	codec *pid.Codec
}

func (b localBackend) Issue(ctx context.Context) (export.Row, error) {
	id, comps, err := b.codec.Generate(ctx)
	if err != nil {
		return export.Row{}, err
	}
	return export.Row{
		PID:        id,
		Components: comps,
		QRPayload:  b.codec.QRPayload(id),
		IssuedAt:   time.Now(),
	}, nil
}

func (b localBackend) Validate(_ context.Context, candidate string, strict bool) (handler.ValidationResponse, error) {
	v := b.codec.Validate(candidate)
	if strict {
		v = b.codec.ValidateStrict(candidate)
	}
	resp := handler.ValidationResponse{PID: candidate, Valid: v.Valid}
	if !v.Valid {
		resp.Error = v.Kind.String()
		resp.Message = v.Kind.Message()
	}
	return resp, nil
}

func (b localBackend) Parse(_ context.Context, candidate string) (pid.Components, error) {
	comps, err := b.codec.Parse(candidate)
	if err != nil {
		return pid.Components{}, rejection(b.codec.Validate(candidate).Kind.Message())
	}
	return comps, nil
}

func (b localBackend) QRPayload(ctx context.Context, candidate string) (string, error) {
	if _, err := b.Parse(ctx, candidate); err != nil {
		return "", err
	}
	return b.codec.QRPayload(candidate), nil
}
