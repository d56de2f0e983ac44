package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
)

// @Summary      Get Pet
// @Description  Look up one tracked pet by shelter code
// @Tags         pets
// @Produce      json
// @Param        code  path  string  true  "Pet code"
// @Success      200  {object}  petdomain.Pet
// @Router       /api/pets/{code} [get]
func (s *Server) GetPet(c *gin.Context) {
	if s.pets == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	code := strings.TrimSpace(c.Param("code"))
	pet, err := s.pets.FindByCode(c.Request.Context(), s.db, code)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if pet == nil {
		AbortWithError(c, petdomain.ErrPetNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pet})
}
