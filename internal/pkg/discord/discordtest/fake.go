// Package discordtest provides an in-memory discord.Context for handler tests.
package discordtest

import (
	"context"
	"io"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Reply is one response captured by the fake context.
type Reply struct {
	Content   string
	Ephemeral bool
	Embed     *discordgo.MessageEmbed
	FileName  string
	File      []byte
	Update    bool
}

// Sent is one message posted to another channel.
type Sent struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

// Context records everything a handler sends back.
type Context struct {
	Ctx        context.Context
	Path       string
	Sender     string
	SenderName string
	Guild      string
	Perms      int64
	Strings    map[string]string
	Ints       map[string]int64
	ReplyErr   error

	mu      sync.Mutex
	replies []Reply
	sent    []Sent
}

// New returns a fake interaction for route invoked by the given user.
func New(route, userID, username string) *Context {
	return &Context{
		Ctx:        context.Background(),
		Path:       route,
		Sender:     userID,
		SenderName: username,
		Guild:      "guild-1",
		Strings:    map[string]string{},
		Ints:       map[string]int64{},
	}
}

// WithString sets a string option.
func (c *Context) WithString(name, value string) *Context {
	c.Strings[name] = value
	return c
}

// WithInt sets an integer option.
func (c *Context) WithInt(name string, value int64) *Context {
	c.Ints[name] = value
	return c
}

// WithPermissions sets the member permission bits.
func (c *Context) WithPermissions(perms int64) *Context {
	c.Perms = perms
	return c
}

func (c *Context) Context() context.Context { return c.Ctx }
func (c *Context) Route() string            { return c.Path }
func (c *Context) UserID() string           { return c.Sender }
func (c *Context) Username() string         { return c.SenderName }
func (c *Context) GuildID() string          { return c.Guild }
func (c *Context) Permissions() int64       { return c.Perms }

func (c *Context) Option(name string) string { return c.Strings[name] }

func (c *Context) IntOption(name string) (int64, bool) {
	v, ok := c.Ints[name]
	return v, ok
}

func (c *Context) record(r Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, r)
	return c.ReplyErr
}

func (c *Context) Reply(content string) error {
	return c.record(Reply{Content: content})
}

func (c *Context) ReplyEphemeral(content string) error {
	return c.record(Reply{Content: content, Ephemeral: true})
}

func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return c.record(Reply{Embed: embed})
}

func (c *Context) ReplyFile(content, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return c.record(Reply{Content: content, FileName: name, File: data})
}

func (c *Context) Update(content string, embed *discordgo.MessageEmbed) error {
	return c.record(Reply{Content: content, Embed: embed, Update: true})
}

func (c *Context) Send(channelID string, msg *discordgo.MessageSend) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{ChannelID: channelID, Message: msg})
	return nil
}

// Replies returns the captured responses in order.
func (c *Context) Replies() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Reply(nil), c.replies...)
}

// Last returns the most recent response, or the zero Reply.
func (c *Context) Last() Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return Reply{}
	}
	return c.replies[len(c.replies)-1]
}

// SentMessages returns messages posted to other channels.
func (c *Context) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}
