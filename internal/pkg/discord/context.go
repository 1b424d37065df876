// Package discord adapts discordgo interactions to a small handler API
// with middleware, so command handlers can be tested without a gateway.
package discord

import (
	"context"
	"io"

	"github.com/bwmarrin/discordgo"
)

// Context is the per-interaction view handlers work with.
type Context interface {
	// Context returns the request context for blocking calls.
	Context() context.Context
	// Route is the slash command name or the component custom ID.
	Route() string
	UserID() string
	Username() string
	// GuildID is empty for direct messages.
	GuildID() string
	// Permissions are the invoking member's guild permissions; zero outside a guild.
	Permissions() int64

	// Option returns a string option, or "" when absent.
	Option(name string) string
	// IntOption returns an integer option and whether it was supplied.
	IntOption(name string) (int64, bool)

	Reply(content string) error
	ReplyEphemeral(content string) error
	ReplyEmbed(embed *discordgo.MessageEmbed) error
	ReplyFile(content, name string, r io.Reader) error
	// Update edits the message a component interaction was attached to.
	Update(content string, embed *discordgo.MessageEmbed) error
	// Send posts a message to another channel.
	Send(channelID string, msg *discordgo.MessageSend) error
}

// HandlerFunc handles one interaction.
type HandlerFunc func(c Context) error

// MiddlewareFunc wraps a handler.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// interaction is the gateway-backed Context.
type interaction struct {
	ctx     context.Context
	session *discordgo.Session
	event   *discordgo.InteractionCreate
	options map[string]*discordgo.ApplicationCommandInteractionDataOption
}

// NewContext wraps a gateway interaction event.
func NewContext(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) Context {
	c := &interaction{ctx: ctx, session: s, event: i}
	if i.Type == discordgo.InteractionApplicationCommand {
		opts := i.ApplicationCommandData().Options
		c.options = make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
		for _, opt := range opts {
			c.options[opt.Name] = opt
		}
	}
	return c
}

func (c *interaction) Context() context.Context { return c.ctx }

func (c *interaction) Route() string {
	switch c.event.Type {
	case discordgo.InteractionApplicationCommand:
		return c.event.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return c.event.MessageComponentData().CustomID
	}
	return ""
}

func (c *interaction) user() *discordgo.User {
	if c.event.Member != nil && c.event.Member.User != nil {
		return c.event.Member.User
	}
	return c.event.User
}

func (c *interaction) UserID() string {
	if u := c.user(); u != nil {
		return u.ID
	}
	return ""
}

func (c *interaction) Username() string {
	if u := c.user(); u != nil {
		return u.Username
	}
	return ""
}

func (c *interaction) GuildID() string { return c.event.GuildID }

func (c *interaction) Permissions() int64 {
	if c.event.Member == nil {
		return 0
	}
	return c.event.Member.Permissions
}

func (c *interaction) Option(name string) string {
	if opt, ok := c.options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func (c *interaction) IntOption(name string) (int64, bool) {
	if opt, ok := c.options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return opt.IntValue(), true
	}
	return 0, false
}

func (c *interaction) respond(data *discordgo.InteractionResponseData) error {
	return c.session.InteractionRespond(c.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(c.ctx))
}

func (c *interaction) Reply(content string) error {
	return c.respond(&discordgo.InteractionResponseData{Content: content})
}

func (c *interaction) ReplyEphemeral(content string) error {
	return c.respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func (c *interaction) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return c.respond(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}})
}

func (c *interaction) ReplyFile(content, name string, r io.Reader) error {
	return c.respond(&discordgo.InteractionResponseData{
		Content: content,
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: "text/csv",
			Reader:      r,
		}},
	})
}

func (c *interaction) Update(content string, embed *discordgo.MessageEmbed) error {
	data := &discordgo.InteractionResponseData{
		Content:    content,
		Components: []discordgo.MessageComponent{},
	}
	if embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	return c.session.InteractionRespond(c.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	}, discordgo.WithContext(c.ctx))
}

func (c *interaction) Send(channelID string, msg *discordgo.MessageSend) error {
	_, err := c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(c.ctx))
	return err
}
