package handlers

import (
	"strings"
	"time"

	"wyse/internal/models"
	"wyse/internal/services/user"
	"wyse/internal/utils"
	"wyse/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// profileView is the user as shown on profile endpoints.
type profileView struct {
	ID              uuid.UUID          `json:"id"`
	Email           string             `json:"email"`
	IsEmailVerified bool               `json:"isEmailVerified"`
	Profile         models.Profile     `json:"profile"`
	Preferences     models.Preferences `json:"preferences"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func newProfileView(u *models.User) profileView {
	return profileView{
		ID:              u.ID,
		Email:           u.Email,
		IsEmailVerified: u.IsEmailVerified,
		Profile:         u.Profile,
		Preferences:     u.Preferences,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	u, err := utils.GetUser(c)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to get profile")
	}
	u, err := h.userService.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(err, "Failed to get profile")
	}
	return utils.Success(c, fiber.Map{"message": "Profile retrieved successfully", "user": newProfileView(u)})
}

type profileInput struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"dateOfBirth"`
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to update profile")
	}

	var input profileInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}

	v := validation.New()
	update := user.ProfileUpdate{}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		v.Name("firstName", "First name", name)
		update.FirstName = &name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		v.Name("lastName", "Last name", name)
		update.LastName = &name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		v.Phone("phone", phone)
		update.Phone = &phone
	}
	if input.DateOfBirth != nil {
		update.DateOfBirth = v.Date("dateOfBirth", *input.DateOfBirth)
	}
	if !v.Valid() {
		return invalid(v)
	}

	u, err := h.userService.UpdateProfile(c.UserContext(), id, update)
	if err != nil {
		return fail(err, "Failed to update profile")
	}
	return utils.Success(c, fiber.Map{"message": "Profile updated successfully", "user": newProfileView(u)})
}

type preferencesInput struct {
	Preferences struct {
		Notifications struct {
			Email *bool `json:"email"`
			Push  *bool `json:"push"`
			SMS   *bool `json:"sms"`
		} `json:"notifications"`
		Theme    *string `json:"theme"`
		Currency *string `json:"currency"`
	} `json:"preferences"`
}

func (h *UserHandler) UpdatePreferences(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to update preferences")
	}

	var input preferencesInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	p := input.Preferences

	v := validation.New()
	if p.Theme != nil {
		v.OneOf("preferences.theme", *p.Theme, "Theme must be light, dark, or auto", models.ThemeLight, models.ThemeDark, models.ThemeAuto)
	}
	if p.Currency != nil {
		upper := strings.ToUpper(strings.TrimSpace(*p.Currency))
		v.Currency("preferences.currency", upper)
		p.Currency = &upper
	}
	if !v.Valid() {
		return invalid(v)
	}

	u, err := h.userService.UpdatePreferences(c.UserContext(), id, user.PreferencesUpdate{
		NotifyEmail: p.Notifications.Email,
		NotifyPush:  p.Notifications.Push,
		NotifySMS:   p.Notifications.SMS,
		Theme:       p.Theme,
		Currency:    p.Currency,
	})
	if err != nil {
		return fail(err, "Failed to update preferences")
	}
	return utils.Success(c, fiber.Map{"message": "Preferences updated successfully", "user": newProfileView(u)})
}

func (h *UserHandler) GetDevices(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to get devices")
	}
	devices, err := h.userService.Devices(c.UserContext(), id)
	if err != nil {
		return fail(err, "Failed to get devices")
	}
	return utils.Success(c, fiber.Map{"message": "Devices retrieved successfully", "devices": devices})
}

func (h *UserHandler) RemoveDevice(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to remove device")
	}
	devices, err := h.userService.RemoveDevice(c.UserContext(), id, c.Params("deviceId"))
	if err != nil {
		return fail(err, "Failed to remove device")
	}
	return utils.Success(c, fiber.Map{"message": "Device removed successfully", "devices": devices})
}

func (h *UserHandler) GetStats(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to get stats")
	}
	stats, err := h.userService.Stats(c.UserContext(), id)
	if err != nil {
		return fail(err, "Failed to get stats")
	}
	return utils.Success(c, fiber.Map{"message": "Stats retrieved successfully", "stats": stats})
}
