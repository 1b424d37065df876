package handler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/pkg/discord"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

// AdminHandler handles admin-only commands. Routes must be wrapped in the admin middleware.
type AdminHandler struct {
	pricing *service.PricingService
	export  *service.ExportService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(pricing *service.PricingService, export *service.ExportService) *AdminHandler {
	return &AdminHandler{pricing: pricing, export: export}
}

// HandlePricing handles /pricing type value.
func (h *AdminHandler) HandlePricing(c discord.Context) error {
	rewardType := strings.ToLower(strings.TrimSpace(c.Option("type")))
	value, err := parseAmount(c.Option("value"))
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	rule, err := h.pricing.SetPricing(c.Context(), rewardType, value)
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	log.Info().
		Str("admin_id", c.UserID()).
		Str("type", string(rule.Type)).
		Str("value", rule.Value.String()).
		Str("operation", "pricing").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"💲 Pricing updated\n\n"+
			"Each approved submission now pays %s %s",
		rule.Value.String(), rule.Type,
	))
}

// HandleExportAttendance handles /export_attendance, replying with a CSV file.
func (h *AdminHandler) HandleExportAttendance(c discord.Context) error {
	var buf bytes.Buffer
	if err := h.export.WriteAttendance(c.Context(), &buf); err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	log.Info().
		Str("admin_id", c.UserID()).
		Int("bytes", buf.Len()).
		Str("operation", "export_attendance").
		Msg("Admin operation executed")

	return c.ReplyFile("📎 Attendance export", "attendance.csv", &buf)
}
