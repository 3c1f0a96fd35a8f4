package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"portraitly/config"
	"portraitly/models"
	"portraitly/utils"
)

// wsStatusInterval is how often the socket re-reads an in-flight generation.
const wsStatusInterval = 2 * time.Second

// WebSocketUpgrade gates the upgrade and authenticates via the token query
// parameter, since browsers cannot set headers on WebSocket requests.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		claims, err := utils.ParseJWTToken(c.Query("token"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		var user models.User
		if err := config.DB.First(&user, claims.UserID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		if claims.TokenVersion != user.TokenVersion {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token version",
			})
		}

		c.Locals("userID", user.ID)
		c.Locals("teamID", TeamIDFor(&user))
		return c.Next()
	}
}

type generationUpdate struct {
	ID         uint     `json:"id"`
	Status     string   `json:"status"`
	ResultURLs []string `json:"result_urls,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// GenerationStatusSocket streams status changes for one generation until it
// settles or the client disconnects.
func GenerationStatusSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		userID, _ := conn.Locals("userID").(uint)
		teamID, _ := conn.Locals("teamID").(*uint)
		generationID := utils.ParseUint(conn.Params("id"))
		if generationID == 0 {
			conn.WriteJSON(fiber.Map{"error": "Invalid generation ID"})
			return
		}

		// Read pump. Clients send nothing, but reading is the only way to
		// notice a dropped connection between status writes; without it the
		// poll loop would keep hitting the database until the generation
		// settles.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		load := func() (*models.Generation, error) {
			var generation models.Generation
			if err := config.DB.First(&generation, generationID).Error; err != nil {
				return nil, errors.New("Generation not found")
			}
			if generation.UserID != userID {
				if generation.TeamID == nil || teamID == nil || *generation.TeamID != *teamID {
					return nil, errors.New("Access denied")
				}
			}
			return &generation, nil
		}

		watchGeneration(conn.WriteJSON, load, done, wsStatusInterval)
	})
}

// watchGeneration pushes each status change through write until the
// generation settles, the connection breaks, or done closes.
func watchGeneration(write func(interface{}) error, load func() (*models.Generation, error), done <-chan struct{}, interval time.Duration) {
	lastStatus := ""
	for {
		generation, err := load()
		if err != nil {
			write(map[string]string{"error": err.Error()})
			return
		}

		if generation.Status != lastStatus {
			lastStatus = generation.Status
			update := generationUpdate{
				ID:         generation.ID,
				Status:     generation.Status,
				ResultURLs: generation.ResultURLs,
				Error:      generation.ErrorMessage,
			}
			if err := write(update); err != nil {
				return
			}
		}

		if !generation.InFlight() {
			return
		}
		select {
		case <-done:
			return
		case <-time.After(interval):
		}
	}
}
