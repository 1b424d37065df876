package bot

import "github.com/bwmarrin/discordgo"

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "ping", Description: "Check that the bot is alive"},
		{Name: "attend", Description: "Mark your attendance"},
		{Name: "attendance", Description: "Show the latest attendance marks"},
		{Name: "profile", Description: "Show your points, balance and rank"},
		{Name: "leaderboard", Description: "Top members by accepted chapters"},
		{Name: "stats", Description: "Community statistics"},
		{
			Name:        "submit",
			Description: "Submit a chapter for review",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "content",
				Description: "What you are submitting",
				Required:    true,
			}},
		},
		{
			Name:        "withdraw",
			Description: "Request a withdrawal from your balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "amount",
					Description: "Amount to withdraw, e.g. 10.50",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "method",
					Description: "Payout method; defaults to the last one you used",
				},
			},
		},
		{Name: "withdrawals", Description: "Show your latest withdrawal requests"},
		{
			Name:        "pricing",
			Description: "Set the reward paid per approved submission (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Reward unit",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "points", Value: "points"},
						{Name: "money", Value: "money"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "Reward amount",
					Required:    true,
				},
			},
		},
		{Name: "export_attendance", Description: "Export attendance as CSV (admin)"},
	}
}
