package routes

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestContextActivationRouteShape(t *testing.T) {
	app := fiber.New()
	SetupAPIRoutes(app, nil)

	registered := make(map[string]bool)
	for _, route := range app.GetRoutes() {
		registered[route.Method+" "+route.Path] = true
	}

	// Activation is addressed by context id in both directions
	assert.True(t, registered["POST /api/v1/styles/contexts/:id/activate"])
	assert.True(t, registered["DELETE /api/v1/styles/contexts/:id/activate"])
	assert.False(t, registered["POST /api/v1/styles/contexts/deactivate"],
		"deactivation must not be a bare collection-level POST")
}
