package utils

import "github.com/gofiber/fiber/v2"

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Created sends a JSON response with status 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

// ErrorBody renders the error envelope. Empty details and field are omitted.
func ErrorBody(title, message string, details interface{}, field string) fiber.Map {
	body := fiber.Map{"error": title, "message": message}
	if details != nil {
		body["details"] = details
	}
	if field != "" {
		body["field"] = field
	}
	return body
}
