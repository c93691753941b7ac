package handlers

import (
	"strconv"
	"strings"

	apperrors "wyse/internal/errors"
	"wyse/internal/services/mono"
	"wyse/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type MonoHandler struct {
	monoService mono.Service
	maxPages    int
}

func NewMonoHandler(monoService mono.Service, maxPages int) *MonoHandler {
	return &MonoHandler{monoService: monoService, maxPages: maxPages}
}

// ExchangeCode links the account behind a Connect widget code.
func (h *MonoHandler) ExchangeCode(c *fiber.Ctx) error {
	var input struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	if strings.TrimSpace(input.Code) == "" {
		return apperrors.Validation("Missing code in request body.", "code is required").WithField("code")
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to link Mono account")
	}

	accounts, err := h.monoService.Link(c.UserContext(), id, strings.TrimSpace(input.Code))
	if err != nil {
		return fail(err, "Failed to link Mono account")
	}
	return utils.Success(c, fiber.Map{
		"message":      "Mono account linked successfully",
		"monoAccounts": accounts,
	})
}

// GetTransactions syncs every linked account and returns one page of the
// user's transactions, newest first.
func (h *MonoHandler) GetTransactions(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to fetch transactions")
	}

	p := utils.GetPagination(c, 1, 50)
	maxPages, err := strconv.Atoi(c.Query("maxPages", strconv.Itoa(h.maxPages)))
	if err != nil || maxPages < 1 {
		maxPages = h.maxPages
	}

	result, err := h.monoService.Sync(c.UserContext(), id, maxPages, p.Offset, p.Limit)
	if err != nil {
		return fail(err, "Failed to fetch transactions")
	}
	p.SetTotal(result.Total)

	return utils.Success(c, fiber.Map{
		"transactions": result.Transactions,
		"pagination":   p,
		"accounts":     result.Accounts,
	})
}

func (h *MonoHandler) GetAccounts(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to fetch accounts")
	}
	accounts, err := h.monoService.ListAccounts(c.UserContext(), id)
	if err != nil {
		return fail(err, "Failed to fetch accounts")
	}
	return utils.Success(c, fiber.Map{"monoAccounts": accounts})
}

// GetAccountData returns the live account detail and first transactions page.
func (h *MonoHandler) GetAccountData(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Query("accountId"))
	if accountID == "" {
		return apperrors.Validation("Missing accountId query parameter.", "accountId is required").WithField("accountId")
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to fetch account data")
	}

	data, err := h.monoService.AccountData(c.UserContext(), id, accountID)
	if err != nil {
		return fail(err, "Failed to fetch account data")
	}
	return utils.Success(c, data)
}
