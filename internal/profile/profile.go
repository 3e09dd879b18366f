// Package profile keeps the user's profile settings. Every field is written
// locally first and confirmed with the remote store afterwards.
package profile

import (
	"context"

	"pocket/internal/core"
	"pocket/internal/optimistic"
)

// Remote field names understood by a Confirmer.
const (
	FieldFullName = "fullName"
	FieldPicture  = "profilePicture"
)

// Confirmer pushes a single profile field to the remote store.
type Confirmer interface {
	UpdateProfileField(ctx context.Context, field, value string) error
}

// NopConfirmer accepts every update. It is used when no remote is configured.
type NopConfirmer struct{}

func (NopConfirmer) UpdateProfileField(context.Context, string, string) error { return nil }

type Profile struct {
	confirmer Confirmer
	fullName  *optimistic.Field[string]
	picture   *optimistic.Field[string]
}

// New restores a profile from stored state.
func New(stored core.Profile, confirmer Confirmer) *Profile {
	if confirmer == nil {
		confirmer = NopConfirmer{}
	}
	return &Profile{
		confirmer: confirmer,
		fullName:  optimistic.NewField(FieldFullName, stored.FullName),
		picture:   optimistic.NewField(FieldPicture, stored.ProfilePicture),
	}
}

func (p *Profile) State() core.Profile {
	return core.Profile{FullName: p.fullName.Get(), ProfilePicture: p.picture.Get()}
}

// SetFullName updates the name and confirms it remotely. On failure the
// previous name is restored and the error returned. onChange observes every
// local change, including the revert.
func (p *Profile) SetFullName(ctx context.Context, name string, onChange func(core.Profile)) error {
	return p.update(ctx, p.fullName, FieldFullName, name, onChange)
}

// SetPicture is SetFullName for the picture URL.
func (p *Profile) SetPicture(ctx context.Context, url string, onChange func(core.Profile)) error {
	return p.update(ctx, p.picture, FieldPicture, url, onChange)
}

func (p *Profile) update(ctx context.Context, f *optimistic.Field[string], field, value string, onChange func(core.Profile)) error {
	var observe func(string)
	if onChange != nil {
		observe = func(string) { onChange(p.State()) }
	}
	return f.Update(ctx, value, func(ctx context.Context, v string) error {
		return p.confirmer.UpdateProfileField(ctx, field, v)
	}, observe)
}
