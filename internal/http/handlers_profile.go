package http

import (
	"context"
	"net/http"

	"pocket/internal/core"
	applog "pocket/internal/log"
)

// ProfileNameRequest is the body of PUT /api/profile/name.
type ProfileNameRequest struct {
	FullName string `json:"fullName"`
}

// ProfilePictureRequest is the body of PUT /api/profile/picture.
type ProfilePictureRequest struct {
	ProfilePicture string `json:"profilePicture"`
}

// profileFailure reports a rejected remote confirmation together with the
// profile as it stands after the local revert.
type profileFailure struct {
	Error   string       `json:"error"`
	Profile core.Profile `json:"profile"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(s.tracker.Profile()).Write(w)
}

func (s *Server) handleSetProfileName(w http.ResponseWriter, r *http.Request) {
	var req ProfileNameRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	s.updateProfile(w, r, func(ctx context.Context) error {
		return s.tracker.SetProfileName(ctx, req.FullName)
	})
}

func (s *Server) handleSetProfilePicture(w http.ResponseWriter, r *http.Request) {
	var req ProfilePictureRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	s.updateProfile(w, r, func(ctx context.Context) error {
		return s.tracker.SetProfilePicture(ctx, req.ProfilePicture)
	})
}

// updateProfile runs an optimistic profile write. A failed confirmation
// answers 502 with the reverted profile.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, update func(context.Context) error) {
	if err := update(r.Context()); err != nil {
		applog.LogError(r.Context(), "Profile update was not confirmed", err, applog.OpUpdate,
			applog.NewFields().WithComponent(applog.ComponentProfile))
		NewResponse().
			Status(http.StatusBadGateway).
			JSON(profileFailure{Error: "remote update failed", Profile: s.tracker.Profile()}).
			Write(w)
		return
	}
	NewResponse().JSON(s.tracker.Profile()).Write(w)
}
