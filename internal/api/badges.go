package api

import (
	"net/http"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
)

func (s *Server) handleListBadges(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientIDFromContext(r.Context())
	if err != nil {
		s.respondInternalErr(w, err)
		return
	}

	badges, err := s.store.GetBadges(r.Context(), patientID)
	if err != nil {
		s.respondInternalErr(w, err)
		return
	}
	if badges == nil {
		badges = []achievement.Badge{}
	}

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    badges,
	})
}
